package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"feedshop/internal/config"
	"feedshop/internal/domain"
	"feedshop/internal/events"
	"feedshop/internal/http/handlers"
	applog "feedshop/internal/log"
	"feedshop/internal/redisx"
	"feedshop/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := applog.New(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	applog.SetLogger(logger)
	defer func() { _ = logger.Sync() }()
	applog.Info(nil, "config.load", map[string]any{
		"port":          cfg.Port,
		"backend":       cfg.Backend,
		"db_dsn":        cfg.DBDSN,
		"redis_addr":    cfg.RedisAddr,
		"kafka_brokers": cfg.KafkaBrokers,
		"app_env":       cfg.AppEnv,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store.open", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer st.close()

	var invoices domain.InvoiceCounter = st.invoices
	var redisCounter *redisx.Counter
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis.ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		redisCounter = redisx.NewInvoiceCounter(rdb)
		invoices = redisCounter
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		logger.Info("events.kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	gate, err := services.NewSecretGate(cfg.AdminSecret, cfg.AdminSecretHash, cfg.AdminTokenTTL)
	if err != nil {
		logger.Fatal("admin.gate", zap.Error(err))
	}
	if cfg.AdminSecret == "" && cfg.AdminSecretHash == "" {
		logger.Warn("admin.gate.disabled")
	}

	catalog := services.NewCatalog(st.products)
	if err := catalog.Load(ctx); err != nil {
		logger.Fatal("catalog.load", zap.Error(err))
	}
	ledger := services.NewLedger(st.orders, invoices, catalog, pub)
	if err := ledger.Load(ctx); err != nil {
		logger.Fatal("ledger.load", zap.Error(err))
	}
	if redisCounter != nil {
		// Orders numbered by the store's own counter must not be reissued.
		if err := redisCounter.Floor(ctx, ledger.LastInvoice()); err != nil {
			logger.Fatal("redis.floor", zap.Error(err))
		}
		logger.Info("invoice.counter", zap.String("source", "redis"), zap.Int64("last", ledger.LastInvoice()))
	}
	svc := &services.App{
		Catalog:  catalog,
		Sessions: services.NewSessions(catalog, cfg.CartTTL),
		Ledger:   ledger,
		Reports:  services.NewReports(ledger),
		Gate:     gate,
	}
	go svc.Sessions.Run(ctx, time.Minute)

	app := handlers.NewApp(handlers.NewDeps(svc, cfg), cfg)
	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	logger.Info("server.start", zap.String("port", cfg.Port), zap.String("backend", cfg.Backend))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server.stop", zap.Error(err))
	}
}
