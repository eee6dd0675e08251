package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-partsearch-bot/internal/adapters/bot"
	"tg-partsearch-bot/internal/adapters/repo"
	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/config"
	"tg-partsearch-bot/internal/infra/db"
	apphttp "tg-partsearch-bot/internal/infra/http"
	applog "tg-partsearch-bot/internal/infra/log"
	"tg-partsearch-bot/internal/infra/metrics"
	"tg-partsearch-bot/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var jobs domain.SearchQueue
	if cfg.RabbitURL != "" {
		jobs, err = queue.NewRabbitSearchQueue(cfg.RabbitURL, cfg.RabbitManagementURL, cfg.Queues.Search)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось инициализировать очередь RabbitMQ")
		}
	} else {
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("не указан адрес очереди (REDIS_ADDR или RABBITMQ_URL)")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		jobs = queue.NewRedisSearchQueue(redisClient, cfg.Queues.Search)
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	h := bot.NewHandler(botAPI, logger, repoAdapter, repoAdapter, jobs, cfg.Billing.TrialBalance, cfg.Billing.UnitCost, cfg.Billing.AdminTGID)

	srv := apphttp.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		logger.Info().Msg("бот-гейтвей запущен")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бота")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
