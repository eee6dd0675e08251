package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tg-partsearch-bot/internal/domain"
)

// Service реализует транзакционную логику платного поиска:
// списание перед поиском и возврат при пустом результате или ошибке шлюза.
type Service struct {
	users    domain.UserRepo
	gateway  domain.SearchGateway
	reports  domain.ReportGenerator
	log      zerolog.Logger
	unitCost int64
}

// NewService создаёт сервис поиска артикулов.
func NewService(users domain.UserRepo, gateway domain.SearchGateway, reports domain.ReportGenerator, log zerolog.Logger, unitCost int64) *Service {
	return &Service{users: users, gateway: gateway, reports: reports, log: log, unitCost: unitCost}
}

// SplitPartNumbers разбивает свободный ввод на артикулы.
// Разделители — пробелы, переводы строк и запятые; пустые токены отбрасываются.
func SplitPartNumbers(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t', ' ':
			return true
		default:
			return false
		}
	})
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

// ProcessRequest обрабатывает один запрос пользователя от токенизации до отчёта.
// Ошибка возвращается только при отказе хранилища баланса; ошибки шлюза
// поглощаются и отражаются видом итога.
func (s *Service) ProcessRequest(ctx context.Context, user domain.User, isAdmin bool, rawText string) (domain.Outcome, error) {
	keywords := SplitPartNumbers(rawText)
	if len(keywords) == 0 {
		return domain.Outcome{Kind: domain.OutcomeNoPartNumbers, Balance: user.Balance}, nil
	}

	var charge int64
	if !isAdmin {
		charge = int64(len(keywords)) * s.unitCost
	}

	if !isAdmin && user.Balance < charge {
		return domain.Outcome{Kind: domain.OutcomeInsufficientFunds, Charge: charge, Balance: user.Balance}, nil
	}

	// Оптимистичное списание: баланс перезаписывается до обращения к шлюзу,
	// возврат выполняется при пустом результате или сбое вызова.
	if charge > 0 {
		if err := s.users.SetBalance(ctx, user.ID, user.Balance-charge); err != nil {
			return domain.Outcome{}, fmt.Errorf("списание средств: %w", err)
		}
	}

	results, err := s.gateway.Search(ctx, keywords, user.Mode)
	if err != nil {
		s.log.Error().Err(err).Int64("user", user.TGUserID).Int("keywords", len(keywords)).Msg("шлюз поиска вернул ошибку")
		if refundErr := s.refund(ctx, user, charge); refundErr != nil {
			return domain.Outcome{}, refundErr
		}
		return domain.Outcome{Kind: domain.OutcomeGatewayError, Charge: charge, Balance: user.Balance}, nil
	}

	annotated := alignResults(keywords, results)
	outcome := domain.Outcome{Charge: charge, Results: annotated}

	matched := outcome.Matched()
	if len(matched) == 0 {
		if refundErr := s.refund(ctx, user, charge); refundErr != nil {
			return domain.Outcome{}, refundErr
		}
		outcome.Kind = domain.OutcomeNoMatches
		outcome.Balance = user.Balance
		return outcome, nil
	}

	report, err := s.reports.Generate(matched)
	if err != nil {
		s.log.Error().Err(err).Int64("user", user.TGUserID).Msg("не удалось сформировать отчёт")
		if refundErr := s.refund(ctx, user, charge); refundErr != nil {
			return domain.Outcome{}, refundErr
		}
		return domain.Outcome{Kind: domain.OutcomeGatewayError, Charge: charge, Balance: user.Balance}, nil
	}

	outcome.Kind = domain.OutcomeSuccess
	outcome.Balance = user.Balance - charge
	outcome.Report = report
	return outcome, nil
}

func (s *Service) refund(ctx context.Context, user domain.User, charge int64) error {
	if charge == 0 {
		return nil
	}
	if err := s.users.SetBalance(ctx, user.ID, user.Balance); err != nil {
		return fmt.Errorf("возврат средств: %w", err)
	}
	return nil
}

// alignResults выравнивает ответ шлюза по списку артикулов запроса.
// Недостающие позиции помечаются как ненайденные, лишние отбрасываются.
func alignResults(keywords []string, results []domain.KeywordResult) []domain.KeywordResult {
	aligned := make([]domain.KeywordResult, len(keywords))
	for i, keyword := range keywords {
		aligned[i] = domain.KeywordResult{PartNumber: keyword}
		if i < len(results) && results[i].Found {
			aligned[i].Found = true
			aligned[i].Match = results[i].Match
		}
	}
	return aligned
}
