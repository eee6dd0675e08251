package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo   = (*Postgres)(nil)
	_ domain.CouponRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// GetOrCreate реализует ленивую регистрацию: первый контакт создаёт
// пользователя со стартовым пробным балансом.
func (p *Postgres) GetOrCreate(ctx context.Context, profile domain.TelegramProfile, trialBalance int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	username := strings.TrimSpace(profile.Username)
	firstName := strings.TrimSpace(profile.FirstName)

	var (
		user domain.User
		mode string
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, username, first_name, balance, search_mode)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tg_user_id) DO UPDATE
SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, updated_at = now()
RETURNING id, tg_user_id, username, first_name, balance, search_mode, created_at, updated_at
`, profile.TGUserID, username, firstName, trialBalance, string(domain.SearchModeActive)).
		Scan(&user.ID, &user.TGUserID, &user.Username, &user.FirstName, &user.Balance, &mode, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_or_create", "users", start, err)
	if err != nil {
		return domain.User{}, fmt.Errorf("создание пользователя: %w", err)
	}
	user.Mode = domain.ParseSearchMode(mode)
	return user, nil
}

// GetByTGID возвращает пользователя по идентификатору Telegram.
func (p *Postgres) GetByTGID(ctx context.Context, tgUserID int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		user domain.User
		mode string
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, tg_user_id, username, first_name, balance, search_mode, created_at, updated_at
FROM users
WHERE tg_user_id = $1
`, tgUserID).
		Scan(&user.ID, &user.TGUserID, &user.Username, &user.FirstName, &user.Balance, &mode, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_tg_id", "users", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("получение пользователя: %w", err)
	}
	user.Mode = domain.ParseSearchMode(mode)
	return user, nil
}

// SetBalance безусловно перезаписывает баланс пользователя.
func (p *Postgres) SetBalance(ctx context.Context, userID, newBalance int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE users SET balance = $2, updated_at = now() WHERE id = $1
`, userID, newBalance)
	metrics.ObserveNetworkRequest("postgres", "users_set_balance", "users", start, err)
	if err != nil {
		return fmt.Errorf("запись баланса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetSearchMode сохраняет выбранный режим поиска.
func (p *Postgres) SetSearchMode(ctx context.Context, userID int64, mode domain.SearchMode) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE users SET search_mode = $2, updated_at = now() WHERE id = $1
`, userID, string(mode))
	metrics.ObserveNetworkRequest("postgres", "users_set_search_mode", "users", start, err)
	if err != nil {
		return fmt.Errorf("запись режима поиска: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
