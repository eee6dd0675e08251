package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-partsearch-bot/internal/adapters/market"
	"tg-partsearch-bot/internal/adapters/repo"
	"tg-partsearch-bot/internal/adapters/report"
	"tg-partsearch-bot/internal/adapters/telegram"
	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/cache"
	"tg-partsearch-bot/internal/infra/config"
	"tg-partsearch-bot/internal/infra/db"
	applog "tg-partsearch-bot/internal/infra/log"
	"tg-partsearch-bot/internal/infra/metrics"
	"tg-partsearch-bot/internal/infra/queue"
	"tg-partsearch-bot/internal/usecase/lookup"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	tokenCache := cache.NewRedis(redisClient)

	var jobs domain.SearchQueue
	if cfg.RabbitURL != "" {
		jobs, err = queue.NewRabbitSearchQueue(cfg.RabbitURL, cfg.RabbitManagementURL, cfg.Queues.Search)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь RabbitMQ")
		}
	} else {
		jobs = queue.NewRedisSearchQueue(redisClient, cfg.Queues.Search)
	}

	if cfg.Market.BaseURL == "" || cfg.Market.AuthURL == "" {
		logger.Fatal().Msg("worker: не указаны адреса маркетплейса (MARKET_BASE_URL, MARKET_AUTH_URL)")
	}
	marketClient := market.NewClient(cfg.Market.BaseURL, cfg.Market.AuthURL, cfg.Market.ClientID, cfg.Market.ClientSecret, cfg.Market.Timeout, tokenCache)
	gateway := market.NewGateway(marketClient, logger.With().Str("component", "market").Logger(), cfg.Market.Concurrency)

	service := lookup.NewService(repoAdapter, gateway, report.NewExcelGenerator(), logger.With().Str("component", "lookup").Logger(), cfg.Billing.UnitCost)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("worker: не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать бота")
	}

	worker := &jobWorker{
		log:       logger,
		queue:     jobs,
		users:     repoAdapter,
		service:   service,
		bot:       botAPI,
		adminTGID: cfg.Billing.AdminTGID,
	}

	logger.Info().Msg("worker: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("worker: остановлен")
}

type jobWorker struct {
	log       zerolog.Logger
	queue     domain.SearchQueue
	users     domain.UserRepo
	service   *lookup.Service
	bot       *tgbotapi.BotAPI
	adminTGID int64
}

const maxDeliveryAttempts = 3

func (w *jobWorker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := w.log.With().
			Str("job_id", job.ID).
			Int64("user", job.UserTGID).
			Int("attempt", job.Attempt+1).
			Logger()

		if w.handleJob(ctx, job, jobLog) {
			if err := ack(true); err != nil {
				jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
			}
			continue
		}

		// Сбой хранилища: задача уходит на повторную доставку с тем же
		// содержимым, пока не исчерпан лимит попыток.
		if job.Attempt+1 < maxDeliveryAttempts {
			jobLog.Warn().Msg("worker: задача завершилась ошибкой, повторим позже")
			retry := job
			retry.Attempt++
			if err := w.queue.Enqueue(ctx, retry); err != nil {
				jobLog.Error().Err(err).Msg("worker: не удалось вернуть задачу в очередь")
			}
		} else {
			jobLog.Error().Msg("worker: достигнут предел попыток")
			w.send(job.ChatID, "Не удалось обработать запрос. Попробуйте позже.")
		}
		if err := ack(true); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
		}
	}
}

// handleJob возвращает true, если задача обработана окончательно.
func (w *jobWorker) handleJob(ctx context.Context, job domain.SearchJob, jobLog zerolog.Logger) bool {
	if job.ChatID == 0 {
		job.ChatID = job.UserTGID
	}

	user, err := w.users.GetByTGID(ctx, job.UserTGID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			w.send(job.ChatID, "Сначала отправьте /start")
			return true
		}
		jobLog.Error().Err(err).Msg("worker: не удалось получить пользователя")
		return false
	}

	isAdmin := w.adminTGID != 0 && job.UserTGID == w.adminTGID
	outcome, err := w.service.ProcessRequest(ctx, user, isAdmin, job.RawText)
	if err != nil {
		jobLog.Error().Err(err).Msg("worker: сбой обработки запроса")
		return false
	}

	metrics.IncLookupOutcome(string(outcome.Kind))
	w.send(job.ChatID, lookup.FormatOutcome(outcome))

	if outcome.Kind == domain.OutcomeSuccess {
		doc := tgbotapi.NewDocument(job.ChatID, tgbotapi.FileBytes{Name: "parts_report.xlsx", Bytes: outcome.Report})
		start := time.Now()
		_, err := w.bot.Send(doc)
		metrics.ObserveNetworkRequest("telegram_bot", "send_document", strconv.FormatInt(job.ChatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			jobLog.Error().Err(err).Msg("worker: не удалось отправить отчёт")
		}
	}
	return true
}

func (w *jobWorker) send(chatID int64, text string) {
	for _, part := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		start := time.Now()
		_, err := w.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			w.log.Error().Err(err).Msg("worker: не удалось отправить сообщение")
			return
		}
	}
}
