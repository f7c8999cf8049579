// cmd/server/main.go

// 本服務提供帳戶建立、轉帳與查詢的 RESTful API。
// 此檔案負責依設定組裝各模組（storage, txn, events, server），
// 啟動時載入快照（快照損毀則中止啟動），並於收到訊號時優雅關閉。

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsystem/internal/config"
	"finsystem/internal/events"
	"finsystem/internal/logging"
	"finsystem/internal/server"
	"finsystem/internal/storage"
	"finsystem/internal/txn"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	app := cli.NewApp()
	app.Name = "ledgerd"
	app.Usage = "Nexus ledger service"
	app.Flags = config.Flags
	app.Action = func(c *cli.Context) error {
		cfg, err := config.FromContext(c)
		if err != nil {
			return cli.NewExitError(err.Error(), 2)
		}
		return run(cfg)
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.AppConfig) error {
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPass,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	}

	store, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	pub := openPublisher(cfg, rdb, logger)
	defer pub.Close()

	// 快照損毀屬致命錯誤：中止啟動，不以預設資料覆蓋
	coord, err := txn.Open(ctx, store, nil,
		txn.WithLogger(logger),
		txn.WithPublisher(pub),
		txn.WithPersistTimeout(cfg.PersistTimeout),
	)
	if err != nil {
		logger.Error("cannot load ledger snapshot", zap.String("store", store.Name()), zap.Error(err))
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewServer(coord, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger server listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", store.Name()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		// 每次成功變更皆已持久化，關閉時不需額外保存
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.AppConfig, rdb *redis.Client) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		return storage.NewRedisStore(rdb, cfg.RedisKey), func() {}, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := storage.NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	default:
		return storage.NewFileStore(cfg.DataFile), func() {}, nil
	}
}

func openPublisher(cfg config.AppConfig, rdb *redis.Client, logger *zap.Logger) events.Publisher {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		return events.NewRedisPublisher(rdb, "")
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	default:
		return events.Nop{}
	}
}
