package domain

import (
	"context"
	"time"
)

// SearchJob содержит информацию о задаче на поиск артикулов.
type SearchJob struct {
	ID          string    `json:"job_id"`
	UserTGID    int64     `json:"user_tg_id"`
	ChatID      int64     `json:"chat_id"`
	RawText     string    `json:"raw_text"`
	Attempt     int       `json:"attempt,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// SearchAckFunc подтверждает обработку или возвращает задачу в очередь.
type SearchAckFunc func(success bool) error

// SearchQueue описывает очередь задач на поиск.
type SearchQueue interface {
	Enqueue(ctx context.Context, job SearchJob) error
	Receive(ctx context.Context) (SearchJob, SearchAckFunc, error)
}
