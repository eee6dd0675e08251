package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
)

// Redeem активирует купон внутри транзакции: код блокируется на чтение,
// помечается использованным и номинал зачисляется на баланс пользователя.
func (p *Postgres) Redeem(ctx context.Context, userID int64, code string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, domain.ErrCouponNotFound
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "coupons", start, err)
	if err != nil {
		return 0, fmt.Errorf("открытие транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		couponID int64
		amount   int64
		usedBy   *int64
	)
	start = time.Now()
	err = tx.QueryRow(ctx, `
SELECT id, amount, used_by FROM coupons WHERE code = $1 FOR UPDATE
`, code).Scan(&couponID, &amount, &usedBy)
	metrics.ObserveNetworkRequest("postgres", "coupons_lock", "coupons", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrCouponNotFound
		}
		return 0, fmt.Errorf("поиск купона: %w", err)
	}
	if usedBy != nil {
		return 0, domain.ErrCouponUsed
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `
UPDATE coupons SET used_by = $2, used_at = now() WHERE id = $1
`, couponID, userID)
	metrics.ObserveNetworkRequest("postgres", "coupons_mark_used", "coupons", start, err)
	if err != nil {
		return 0, fmt.Errorf("активация купона: %w", err)
	}

	var newBalance int64
	start = time.Now()
	err = tx.QueryRow(ctx, `
UPDATE users SET balance = balance + $2, updated_at = now() WHERE id = $1
RETURNING balance
`, userID, amount).Scan(&newBalance)
	metrics.ObserveNetworkRequest("postgres", "users_credit_coupon", "users", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("зачисление купона: %w", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "coupons", start, err)
	if err != nil {
		return 0, fmt.Errorf("фиксация транзакции: %w", err)
	}
	return newBalance, nil
}
