package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	Market struct {
		BaseURL      string        `envconfig:"MARKET_BASE_URL"`
		AuthURL      string        `envconfig:"MARKET_AUTH_URL"`
		ClientID     string        `envconfig:"MARKET_CLIENT_ID"`
		ClientSecret string        `envconfig:"MARKET_CLIENT_SECRET"`
		Timeout      time.Duration `envconfig:"MARKET_TIMEOUT" default:"30s"`
		Concurrency  int           `envconfig:"MARKET_CONCURRENCY" default:"4"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL           string `envconfig:"RABBITMQ_URL"`
	RabbitManagementURL string `envconfig:"RABBITMQ_MANAGEMENT_URL"`

	Billing struct {
		UnitCost     int64 `envconfig:"SEARCH_UNIT_COST" default:"100"`
		TrialBalance int64 `envconfig:"TRIAL_BALANCE" default:"300"`
		AdminTGID    int64 `envconfig:"ADMIN_TG_ID"`
	} `envconfig:""`

	Queues struct {
		Search string `envconfig:"SEARCH_QUEUE_KEY" default:"search_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
