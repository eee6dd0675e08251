package domain

// OutcomeKind перечисляет варианты завершения запроса на поиск.
type OutcomeKind string

const (
	// OutcomeNoPartNumbers — во вводе не нашлось ни одного артикула.
	OutcomeNoPartNumbers OutcomeKind = "no_part_numbers"
	// OutcomeInsufficientFunds — на балансе не хватает средств.
	OutcomeInsufficientFunds OutcomeKind = "insufficient_funds"
	// OutcomeNoMatches — шлюз ничего не нашёл, списание возвращено.
	OutcomeNoMatches OutcomeKind = "no_matches"
	// OutcomeGatewayError — шлюз вернул ошибку, списание возвращено.
	OutcomeGatewayError OutcomeKind = "gateway_error"
	// OutcomeSuccess — найдена хотя бы одна позиция, списание удержано.
	OutcomeSuccess OutcomeKind = "success"
)

// Outcome описывает итог обработки одного запроса.
// Results хранит полный аннотированный список в порядке артикулов запроса,
// включая позиции без совпадений. Report заполняется только при успехе.
type Outcome struct {
	Kind    OutcomeKind
	Charge  int64
	Balance int64
	Results []KeywordResult
	Report  []byte
}

// Matched возвращает отфильтрованное представление результатов:
// только найденные позиции, в исходном порядке. Именно это
// представление попадает в отчёт.
func (o Outcome) Matched() []ReportRow {
	rows := make([]ReportRow, 0, len(o.Results))
	for _, res := range o.Results {
		if !res.Found {
			continue
		}
		rows = append(rows, ReportRow{
			PartNumber: res.PartNumber,
			Title:      res.Match.Title,
			Price:      res.Match.Price,
		})
	}
	return rows
}
