package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"tg-partsearch-bot/internal/domain"
)

func TestGenerateWritesRows(t *testing.T) {
	gen := NewExcelGenerator()
	data, err := gen.Generate([]domain.ReportRow{
		{PartNumber: "PN1", Title: "Первая деталь", Price: "5.00 USD"},
		{PartNumber: "PN2", Title: "Вторая деталь", Price: "7.50 USD"},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("ожидали непустой файл")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("файл должен открываться: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("чтение строк: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ожидали шапку и 2 строки, получили %d", len(rows))
	}
	if rows[1][0] != "PN1" || rows[2][2] != "7.50 USD" {
		t.Fatalf("неожиданное содержимое: %v", rows)
	}
}

func TestGenerateEmptyListStillValid(t *testing.T) {
	gen := NewExcelGenerator()
	data, err := gen.Generate(nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("пустой список всё равно даёт валидный файл")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("файл должен открываться: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("чтение строк: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ожидали только шапку, получили %d строк", len(rows))
	}
}
