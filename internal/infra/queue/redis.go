package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
)

// RedisSearchQueue реализует очередь задач поиска на базе Redis lists.
type RedisSearchQueue struct {
	client *redis.Client
	key    string
}

var _ domain.SearchQueue = (*RedisSearchQueue)(nil)

// NewRedisSearchQueue создаёт очередь по указанному ключу.
func NewRedisSearchQueue(client *redis.Client, key string) *RedisSearchQueue {
	return &RedisSearchQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisSearchQueue) Enqueue(ctx context.Context, job domain.SearchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "enqueue", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Подтверждение с success=false
// возвращает задачу в хвост очереди для повторной доставки.
func (q *RedisSearchQueue) Receive(ctx context.Context) (domain.SearchJob, domain.SearchAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.SearchJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.SearchJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.SearchJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.SearchJob{}, nil, errors.New("redis queue: unexpected response")
		}

		payload := res[1]
		var job domain.SearchJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return domain.SearchJob{}, nil, fmt.Errorf("decode job: %w", err)
		}

		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.LPush(context.Background(), q.key, payload).Err()
		}
		return job, ack, nil
	}
}
