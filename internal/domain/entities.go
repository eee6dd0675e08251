package domain

import (
	"strings"
	"time"
)

// SearchMode определяет стратегию поиска на маркетплейсе.
type SearchMode string

const (
	// SearchModeActive — поиск по активным объявлениям.
	SearchModeActive SearchMode = "active"
	// SearchModeSold — поиск по проданным лотам.
	SearchModeSold SearchMode = "sold"
	// SearchModeEnded — поиск по завершённым лотам.
	SearchModeEnded SearchMode = "ended"
)

// ParseSearchMode приводит строку к известному режиму поиска.
// Неизвестные значения трактуются как режим по умолчанию.
func ParseSearchMode(raw string) SearchMode {
	switch SearchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case SearchModeSold:
		return SearchModeSold
	case SearchModeEnded:
		return SearchModeEnded
	default:
		return SearchModeActive
	}
}

// User описывает пользователя Telegram в системе.
// Баланс хранится в минимальных единицах валюты.
type User struct {
	ID        int64
	TGUserID  int64
	Username  string
	FirstName string
	Balance   int64
	Mode      SearchMode
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match содержит найденную позицию маркетплейса.
type Match struct {
	Title string
	Price string
}

// KeywordResult связывает артикул с результатом поиска.
// Порядок в списке результатов совпадает с порядком артикулов запроса.
type KeywordResult struct {
	PartNumber string
	Found      bool
	Match      Match
}

// ReportRow описывает одну строку итогового отчёта.
type ReportRow struct {
	PartNumber string
	Title      string
	Price      string
}

// Coupon описывает одноразовый код пополнения баланса.
type Coupon struct {
	ID        int64
	Code      string
	Amount    int64
	UsedBy    *int64
	UsedAt    *time.Time
	CreatedAt time.Time
}
