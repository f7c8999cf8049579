// Package config 組裝服務設定。
// 來源優先序：命令列旗標 > 環境變數 > .env 檔 > 預設值。
package config

import (
	"os"
	"strings"
	"time"

	"finsystem/internal/logging"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

// 儲存與事件後端名稱。
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

// AppConfig 為服務執行所需的全部設定。
type AppConfig struct {
	HTTPAddr string

	StoreBackend string
	DataFile     string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	RedisKey     string
	DatabaseURL  string

	EventsBackend string
	KafkaBrokers  []string
	KafkaTopic    string

	PersistTimeout time.Duration
	Log            logging.Options
}

// Flags 為 ledgerd 支援的命令列旗標，每個旗標皆可由對應環境變數設定。
var Flags = []cli.Flag{
	cli.StringFlag{Name: "http-addr", Value: ":8080", EnvVar: "HTTP_ADDR", Usage: "HTTP listen address"},
	cli.StringFlag{Name: "store", Value: StoreFile, EnvVar: "STORE_BACKEND", Usage: "snapshot store: file, redis or postgres"},
	cli.StringFlag{Name: "data-file", Value: "database.json", EnvVar: "DATA_FILE", Usage: "snapshot file for the file store"},
	cli.StringFlag{Name: "redis-addr", Value: "localhost:6379", EnvVar: "REDIS_ADDR", Usage: "redis address"},
	cli.StringFlag{Name: "redis-pass", EnvVar: "REDIS_PASS", Usage: "redis password"},
	cli.IntFlag{Name: "redis-db", EnvVar: "REDIS_DB", Usage: "redis database number"},
	cli.StringFlag{Name: "redis-key", EnvVar: "REDIS_KEY", Usage: "redis key holding the snapshot"},
	cli.StringFlag{Name: "database-url", EnvVar: "DATABASE_URL", Usage: "postgres connection string"},
	cli.StringFlag{Name: "events", Value: EventsNone, EnvVar: "EVENTS_BACKEND", Usage: "event publisher: none, redis or kafka"},
	cli.StringFlag{Name: "kafka-brokers", Value: "localhost:9092", EnvVar: "KAFKA_BROKERS", Usage: "comma separated kafka brokers"},
	cli.StringFlag{Name: "kafka-topic", Value: "ledger.events", EnvVar: "KAFKA_TOPIC", Usage: "kafka topic for ledger events"},
	cli.DurationFlag{Name: "persist-timeout", Value: 5 * time.Second, EnvVar: "PERSIST_TIMEOUT", Usage: "max duration of a snapshot write, 0 disables"},
	cli.StringFlag{Name: "log-level", Value: "info", EnvVar: "LOG_LEVEL", Usage: "debug, info, warn or error"},
	cli.StringFlag{Name: "log-format", Value: "json", EnvVar: "LOG_FORMAT", Usage: "json or console"},
	cli.StringFlag{Name: "log-file", EnvVar: "LOG_FILE", Usage: "rotate logs into this file instead of stderr"},
}

// LoadDotEnv 載入 .env 檔（可選）；檔案不存在時不視為錯誤。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return errors.Wrap(godotenv.Load(existing...), "load .env")
}

// FromContext 由 cli.Context 讀出 AppConfig 並驗證。
func FromContext(c *cli.Context) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:       c.String("http-addr"),
		StoreBackend:   strings.ToLower(c.String("store")),
		DataFile:       c.String("data-file"),
		RedisAddr:      c.String("redis-addr"),
		RedisPass:      c.String("redis-pass"),
		RedisDB:        c.Int("redis-db"),
		RedisKey:       c.String("redis-key"),
		DatabaseURL:    c.String("database-url"),
		EventsBackend:  strings.ToLower(c.String("events")),
		KafkaBrokers:   splitList(c.String("kafka-brokers")),
		KafkaTopic:     c.String("kafka-topic"),
		PersistTimeout: c.Duration("persist-timeout"),
		Log: logging.Options{
			Level:  c.String("log-level"),
			Format: c.String("log-format"),
			File:   c.String("log-file"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate 檢查後端名稱與必要參數。
func (c AppConfig) Validate() error {
	switch c.StoreBackend {
	case StoreFile:
		if c.DataFile == "" {
			return errors.New("data-file is required for the file store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis-addr is required for the redis store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database-url is required for the postgres store")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.EventsBackend {
	case EventsNone, "":
	case EventsRedis:
		if c.RedisAddr == "" {
			return errors.New("redis-addr is required for redis events")
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return errors.New("kafka-brokers and kafka-topic are required for kafka events")
		}
	default:
		return errors.Errorf("unknown events backend %q", c.EventsBackend)
	}

	if c.PersistTimeout < 0 {
		return errors.New("persist-timeout must not be negative")
	}
	return nil
}

// NeedsRedis 回傳是否需要建立 redis client。
func (c AppConfig) NeedsRedis() bool {
	return c.StoreBackend == StoreRedis || c.EventsBackend == EventsRedis
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
