package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
)

const (
	tokenCacheKey = "market:access_token"
	tokenMargin   = time.Minute
)

// Client выполняет запросы к API маркетплейса.
// Токен авторизации кэшируется во внешнем TTL-хранилище, чтобы процессы
// не запрашивали его на каждый вызов.
type Client struct {
	http         *http.Client
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	tokens       domain.Cache
}

// NewClient создаёт клиента маркетплейса.
func NewClient(baseURL, authURL, clientID, clientSecret string, timeout time.Duration, tokens domain.Cache) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken возвращает действующий токен, при необходимости запрашивая новый.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if cached, err := c.tokens.Get(tokenCacheKey); err == nil && len(cached) > 0 {
		return string(cached), nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("market: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("market", "token", "auth", start, err)
	if err != nil {
		return "", fmt.Errorf("market: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("market: read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("market: token status %d", resp.StatusCode)
	}
	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("market: decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("market: empty access token")
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl > tokenMargin {
		ttl -= tokenMargin
	}
	if ttl > 0 {
		// сбой кэша не фатален: токен всё равно получен
		_ = c.tokens.Set(tokenCacheKey, []byte(token.AccessToken), ttl)
	}
	return token.AccessToken, nil
}

type searchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"items"`
}

// SearchKeyword ищет лучшую позицию по одному артикулу.
// Возвращает ok=false, если ничего не найдено.
func (c *Client) SearchKeyword(ctx context.Context, token, keyword string, mode domain.SearchMode) (domain.Match, bool, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("mode", string(mode))
	params.Set("limit", "1")
	endpoint := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Match{}, false, fmt.Errorf("market: build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("market", "search", string(mode), start, err)
	if err != nil {
		return domain.Match{}, false, fmt.Errorf("market: search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Match{}, false, fmt.Errorf("market: read search response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.Match{}, false, fmt.Errorf("market: unauthorized: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return domain.Match{}, false, fmt.Errorf("market: search status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Match{}, false, fmt.Errorf("market: decode search response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return domain.Match{}, false, nil
	}

	item := parsed.Items[0]
	price := strings.TrimSpace(item.Price.Value + " " + item.Price.Currency)
	return domain.Match{Title: item.Title, Price: price}, true, nil
}
