package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tg-partsearch-bot/internal/domain"
)

// api покрывает методы клиента, нужные шлюзу.
type api interface {
	AccessToken(ctx context.Context) (string, error)
	SearchKeyword(ctx context.Context, token, keyword string, mode domain.SearchMode) (domain.Match, bool, error)
}

// Gateway реализует domain.SearchGateway поверх клиента маркетплейса.
// Один вызов Search обслуживает весь список артикулов; внутри артикулы
// обрабатываются параллельно с ограничением по числу одновременных запросов.
type Gateway struct {
	client      api
	log         zerolog.Logger
	concurrency int
}

var _ domain.SearchGateway = (*Gateway)(nil)

// NewGateway создаёт шлюз поиска.
func NewGateway(client *Client, log zerolog.Logger, concurrency int) *Gateway {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Gateway{client: client, log: log, concurrency: concurrency}
}

// Search ищет все артикулы и возвращает результаты в исходном порядке.
// Ошибка отдельного артикула понижается до отсутствия совпадения; ошибкой
// всего вызова считается только невозможность получить токен.
func (g *Gateway) Search(ctx context.Context, keywords []string, mode domain.SearchMode) ([]domain.KeywordResult, error) {
	token, err := g.client.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	results := make([]domain.KeywordResult, len(keywords))
	sem := make(chan struct{}, g.concurrency)
	var wg sync.WaitGroup
	for i, keyword := range keywords {
		results[i] = domain.KeywordResult{PartNumber: keyword}
		wg.Add(1)
		go func(idx int, kw string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			match, ok, err := g.client.SearchKeyword(ctx, token, kw, mode)
			if err != nil {
				g.log.Warn().Err(err).Str("keyword", kw).Msg("поиск по артикулу не удался")
				return
			}
			if !ok {
				return
			}
			results[idx].Found = true
			results[idx].Match = match
		}(i, keyword)
	}
	wg.Wait()

	return results, nil
}
