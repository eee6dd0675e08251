package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tg-partsearch-bot/internal/domain"
)

type memCache struct {
	values map[string][]byte
}

func newMemCache() *memCache { return &memCache{values: make(map[string][]byte)} }

func (c *memCache) Set(key string, value []byte, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memCache) Get(key string) ([]byte, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, errors.New("нет значения")
}

func TestAccessTokenCached(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	}))
	defer srv.Close()

	client := NewClient("http://unused", srv.URL, "id", "secret", time.Second, newMemCache())

	for i := 0; i < 3; i++ {
		token, err := client.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if token != "abc" {
			t.Fatalf("ожидали токен abc, получили %q", token)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("токен должен запрашиваться один раз, запросов было %d", tokenCalls)
	}
}

func TestSearchKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		if q == "missing" {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Деталь","price":{"value":"12.30","currency":"USD"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL+"/token", "id", "secret", time.Second, newMemCache())

	match, ok, err := client.SearchKeyword(context.Background(), "tok", "PN1", domain.SearchModeActive)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatal("ожидали найденную позицию")
	}
	if match.Title != "Деталь" || match.Price != "12.30 USD" {
		t.Fatalf("неожиданный результат: %+v", match)
	}

	_, ok, err = client.SearchKeyword(context.Background(), "tok", "missing", domain.SearchModeActive)
	if err != nil {
		t.Fatalf("пустой результат не ошибка: %v", err)
	}
	if ok {
		t.Fatal("ожидали отсутствие совпадения")
	}
}
