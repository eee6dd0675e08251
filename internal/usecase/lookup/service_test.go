package lookup

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"tg-partsearch-bot/internal/domain"
)

type stubUsers struct {
	user   domain.User
	writes []int64
}

func (s *stubUsers) GetOrCreate(context.Context, domain.TelegramProfile, int64) (domain.User, error) {
	return s.user, nil
}
func (s *stubUsers) GetByTGID(context.Context, int64) (domain.User, error) { return s.user, nil }
func (s *stubUsers) SetBalance(_ context.Context, _ int64, newBalance int64) error {
	s.writes = append(s.writes, newBalance)
	return nil
}
func (s *stubUsers) SetSearchMode(context.Context, int64, domain.SearchMode) error { return nil }

type stubGateway struct {
	results  []domain.KeywordResult
	err      error
	calls    int
	captured []string
	mode     domain.SearchMode
}

func (g *stubGateway) Search(_ context.Context, keywords []string, mode domain.SearchMode) ([]domain.KeywordResult, error) {
	g.calls++
	g.captured = append([]string(nil), keywords...)
	g.mode = mode
	if g.err != nil {
		return nil, g.err
	}
	return g.results, nil
}

type stubReports struct {
	calls int
	rows  []domain.ReportRow
}

func (r *stubReports) Generate(rows []domain.ReportRow) ([]byte, error) {
	r.calls++
	r.rows = append([]domain.ReportRow(nil), rows...)
	return []byte("xlsx"), nil
}

func matchAll(keywords ...string) []domain.KeywordResult {
	results := make([]domain.KeywordResult, 0, len(keywords))
	for _, kw := range keywords {
		results = append(results, domain.KeywordResult{
			PartNumber: kw,
			Found:      true,
			Match:      domain.Match{Title: "Деталь " + kw, Price: "10.00 USD"},
		})
	}
	return results
}

func newTestService(users *stubUsers, gateway *stubGateway, reports *stubReports, unitCost int64) *Service {
	return NewService(users, gateway, reports, zerolog.Nop(), unitCost)
}

func TestSplitPartNumbers(t *testing.T) {
	got := SplitPartNumbers(" PN1 , PN2\nPN3 ")
	want := []string{"PN1", "PN2", "PN3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ожидали %v, получили %v", want, got)
	}
}

func TestProcessRequestSuccess(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 100, Mode: domain.SearchModeSold}}
	gateway := &stubGateway{results: matchAll("PN1", "PN2", "PN3")}
	reports := &stubReports{}
	service := newTestService(users, gateway, reports, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1, PN2, PN3")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("ожидали успех, получили %s", outcome.Kind)
	}
	if outcome.Charge != 6 {
		t.Fatalf("ожидали списание 6, получили %d", outcome.Charge)
	}
	if outcome.Balance != 94 {
		t.Fatalf("ожидали баланс 94, получили %d", outcome.Balance)
	}
	if !reflect.DeepEqual(users.writes, []int64{94}) {
		t.Fatalf("ожидали одну запись баланса 94, получили %v", users.writes)
	}
	if gateway.mode != domain.SearchModeSold {
		t.Fatalf("ожидали режим пользователя, получили %s", gateway.mode)
	}
	if len(reports.rows) != 3 {
		t.Fatalf("ожидали 3 строки отчёта, получили %d", len(reports.rows))
	}
	if len(outcome.Report) == 0 {
		t.Fatal("ожидали непустой отчёт")
	}
}

func TestProcessRequestInsufficientFunds(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 5}}
	gateway := &stubGateway{}
	reports := &stubReports{}
	service := newTestService(users, gateway, reports, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1 PN2 PN3 PN4")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeInsufficientFunds {
		t.Fatalf("ожидали отказ по балансу, получили %s", outcome.Kind)
	}
	if outcome.Balance != 5 {
		t.Fatalf("баланс не должен меняться, получили %d", outcome.Balance)
	}
	if len(users.writes) != 0 {
		t.Fatalf("не ожидали записей баланса, получили %v", users.writes)
	}
	if gateway.calls != 0 {
		t.Fatal("шлюз не должен вызываться при отказе")
	}
}

func TestProcessRequestExactBalanceAdmitted(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 4}}
	gateway := &stubGateway{results: matchAll("PN1", "PN2")}
	service := newTestService(users, gateway, &stubReports{}, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1 PN2")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("баланс равный стоимости должен проходить, получили %s", outcome.Kind)
	}
	if outcome.Balance != 0 {
		t.Fatalf("ожидали нулевой баланс, получили %d", outcome.Balance)
	}
}

func TestProcessRequestNoMatchesRefunds(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 100}}
	gateway := &stubGateway{results: []domain.KeywordResult{
		{PartNumber: "PN1"},
		{PartNumber: "PN2"},
	}}
	reports := &stubReports{}
	service := newTestService(users, gateway, reports, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1, PN2")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeNoMatches {
		t.Fatalf("ожидали пустой результат, получили %s", outcome.Kind)
	}
	if !reflect.DeepEqual(users.writes, []int64{96, 100}) {
		t.Fatalf("ожидали списание и возврат, получили %v", users.writes)
	}
	if outcome.Balance != 100 {
		t.Fatalf("ожидали восстановленный баланс 100, получили %d", outcome.Balance)
	}
	if reports.calls != 0 {
		t.Fatal("отчёт не должен строиться при пустом результате")
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("ожидали аннотированный список из 2 позиций, получили %d", len(outcome.Results))
	}
}

func TestProcessRequestGatewayErrorRefunds(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 100}}
	gateway := &stubGateway{err: errors.New("marketplace недоступен")}
	reports := &stubReports{}
	service := newTestService(users, gateway, reports, 1)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1")
	if err != nil {
		t.Fatalf("ошибка шлюза должна поглощаться: %v", err)
	}
	if outcome.Kind != domain.OutcomeGatewayError {
		t.Fatalf("ожидали общий отказ, получили %s", outcome.Kind)
	}
	if !reflect.DeepEqual(users.writes, []int64{99, 100}) {
		t.Fatalf("ожидали списание и возврат, получили %v", users.writes)
	}
	if reports.calls != 0 {
		t.Fatal("отчёт не должен строиться при ошибке шлюза")
	}
}

func TestProcessRequestAdminNotCharged(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 0}}
	gateway := &stubGateway{results: matchAll("PN1", "PN2", "PN3", "PN4", "PN5")}
	service := newTestService(users, gateway, &stubReports{}, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, true, "PN1 PN2 PN3 PN4 PN5")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeSuccess {
		t.Fatalf("ожидали успех, получили %s", outcome.Kind)
	}
	if outcome.Charge != 0 {
		t.Fatalf("администратор не должен платить, получили %d", outcome.Charge)
	}
	if len(users.writes) != 0 {
		t.Fatalf("баланс администратора не должен меняться, получили %v", users.writes)
	}
}

func TestProcessRequestNoPartNumbers(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 50}}
	gateway := &stubGateway{}
	service := newTestService(users, gateway, &stubReports{}, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, " , \n ")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if outcome.Kind != domain.OutcomeNoPartNumbers {
		t.Fatalf("ожидали отказ по токенам, получили %s", outcome.Kind)
	}
	if gateway.calls != 0 || len(users.writes) != 0 {
		t.Fatal("пустой запрос не должен иметь побочных эффектов")
	}
}

func TestProcessRequestKeepsOrderAndFiltersReport(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 100}}
	gateway := &stubGateway{results: []domain.KeywordResult{
		{PartNumber: "PN1", Found: true, Match: domain.Match{Title: "Первая", Price: "5.00 USD"}},
		{PartNumber: "PN2"},
		{PartNumber: "PN3", Found: true, Match: domain.Match{Title: "Третья", Price: "7.00 USD"}},
	}}
	reports := &stubReports{}
	service := newTestService(users, gateway, reports, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1 PN2 PN3")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(outcome.Results) != 3 {
		t.Fatalf("аннотированный список должен покрывать все артикулы, получили %d", len(outcome.Results))
	}
	if outcome.Results[1].Found {
		t.Fatal("ожидали явную пометку отсутствия для PN2")
	}
	if len(reports.rows) != 2 {
		t.Fatalf("в отчёт должны попасть только найденные позиции, получили %d", len(reports.rows))
	}
	if reports.rows[0].PartNumber != "PN1" || reports.rows[1].PartNumber != "PN3" {
		t.Fatalf("порядок строк отчёта нарушен: %v", reports.rows)
	}
}

func TestProcessRequestAlignsShortGatewayResponse(t *testing.T) {
	users := &stubUsers{user: domain.User{ID: 1, TGUserID: 42, Balance: 100}}
	gateway := &stubGateway{results: []domain.KeywordResult{
		{PartNumber: "PN1", Found: true, Match: domain.Match{Title: "Первая", Price: "5.00 USD"}},
	}}
	service := newTestService(users, gateway, &stubReports{}, 2)

	outcome, err := service.ProcessRequest(context.Background(), users.user, false, "PN1 PN2 PN3")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(outcome.Results) != 3 {
		t.Fatalf("ожидали выравнивание до 3 позиций, получили %d", len(outcome.Results))
	}
	if !outcome.Results[0].Found || outcome.Results[1].Found || outcome.Results[2].Found {
		t.Fatalf("нарушено позиционное соответствие: %v", outcome.Results)
	}
}
