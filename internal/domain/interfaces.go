package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound возвращается, когда пользователь не зарегистрирован.
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrCouponNotFound возвращается, когда код пополнения не существует.
	ErrCouponNotFound = errors.New("купон не найден")

	// ErrCouponUsed возвращается при повторной активации купона.
	ErrCouponUsed = errors.New("купон уже активирован")
)

// TelegramProfile содержит данные профиля из входящего сообщения.
type TelegramProfile struct {
	TGUserID  int64
	Username  string
	FirstName string
}

// UserRepo управляет пользователями и их балансами.
// Баланс меняется только полной перезаписью нового значения.
type UserRepo interface {
	GetOrCreate(ctx context.Context, profile TelegramProfile, trialBalance int64) (User, error)
	GetByTGID(ctx context.Context, tgUserID int64) (User, error)
	SetBalance(ctx context.Context, userID, newBalance int64) error
	SetSearchMode(ctx context.Context, userID int64, mode SearchMode) error
}

// CouponRepo управляет купонами пополнения.
type CouponRepo interface {
	// Redeem активирует купон и зачисляет его номинал на баланс пользователя.
	// Возвращает баланс после зачисления.
	Redeem(ctx context.Context, userID int64, code string) (int64, error)
}

// SearchGateway выполняет пакетный поиск по списку артикулов.
// Результат выровнен позиционно со списком keywords: сбой отдельного
// артикула отражается как Found=false, а не пропуском элемента.
// Ошибка возвращается только при отказе всего вызова.
type SearchGateway interface {
	Search(ctx context.Context, keywords []string, mode SearchMode) ([]KeywordResult, error)
}

// ReportGenerator строит бинарный артефакт отчёта по строкам результата.
// Обязан вернуть валидный непустой файл даже для пустого списка строк.
type ReportGenerator interface {
	Generate(rows []ReportRow) ([]byte, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
