package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
)

const sheetName = "Results"

// ExcelGenerator строит xlsx-отчёт по результатам поиска.
type ExcelGenerator struct{}

var _ domain.ReportGenerator = (*ExcelGenerator)(nil)

// NewExcelGenerator создаёт генератор отчётов.
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Generate формирует файл с шапкой и строками результатов.
// Для пустого списка возвращается валидный файл только с шапкой.
func (g *ExcelGenerator) Generate(rows []domain.ReportRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("создание листа: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("удаление листа по умолчанию: %w", err)
	}

	header := []string{"Part Number", "Title", "Price"}
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("адрес ячейки: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("запись шапки: %w", err)
		}
	}

	for i, row := range rows {
		values := []string{row.PartNumber, row.Title, row.Price}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("адрес ячейки: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("запись строки %d: %w", i+1, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 28); err != nil {
		return nil, fmt.Errorf("ширина колонок: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("сериализация файла: %w", err)
	}

	metrics.ReportBuildSeconds.Observe(time.Since(start).Seconds())
	return buf.Bytes(), nil
}
