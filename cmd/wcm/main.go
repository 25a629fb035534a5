package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/repository/postgres"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/audit"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/catalog"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/compliance"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/handler"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/server"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra/auth"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/trust"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// RSA ключи консоли (подпись и проверка токенов)
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse private key", zap.Error(err))
	}
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse public key", zap.Error(err))
	}

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
	pgRepo, err := postgres.NewRepo(bootCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("failed to init postgres pool", zap.Error(err))
	}
	defer pgRepo.Close()
	if err := pgRepo.Ping(bootCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	// Отдельное соединение для аудиторского следа
	auditRepo := postgres.NewAuditRepo(cfg.Database.URL)
	if err := auditRepo.Ping(bootCtx); err != nil {
		logger.Fatal("audit database unreachable", zap.Error(err))
	}
	bootCancel()

	// Контекст для управления жизненным циклом фоновых горутин
	// При завершении main() или срабатывании SIGTERM, cancel() остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Control Plane (кэш каталога + множество пауз)
	policyCache := catalog.NewMemoCache(pgRepo, rdb, logger)
	if err := policyCache.Refresh(appCtx); err != nil {
		logger.Fatal("failed to load policy catalog", zap.Error(err))
	}
	go policyCache.StartListener(appCtx)

	pauses := compliance.NewPauseManager(rdb, logger)
	if err := pauses.Init(appCtx); err != nil {
		logger.Fatal("failed to init pause manager", zap.Error(err))
	}
	go pauses.StartListener(appCtx)

	// 4. Аудит (пакетный фоновый писатель) и trust-контур (Retries, CB, Rate Limit)
	trail := audit.NewTrail(auditRepo, cfg.Monitor.AuditBufferSize, cfg.Monitor.AuditBatchSize, cfg.Monitor.AuditFlushInterval, logger)
	trail.Start()

	trustSync := trust.NewReliableSync(pgRepo, trust.Settings{
		CBMaxRequests: cfg.Monitor.CBMaxRequests,
		CBInterval:    cfg.Monitor.CBInterval,
		CBTimeout:     cfg.Monitor.CBTimeout,
	})

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := compliance.NewMetrics(reg)

	// Экспортируем метрики для Prometheus
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics endpoint started", zap.String("addr", addr))
		log.Fatal(http.ListenAndServe(addr, mux))
	}()

	// Заполненность аудит-буфера как gauge (backpressure-сигнал)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				metrics.AuditBufferFill.Set(float64(trail.Pending()))
			}
		}
	}()

	// 5. Core (сборка движка надзора)
	store := compliance.NewSessionStore()
	notifier := compliance.NewNotifier(logger)
	evaluator := compliance.NewEvaluator(nil, logger) // Дефолтный keyword-матчер
	executor := compliance.NewInterventionExecutor(pauses, notifier, logger)

	managerOpts := []compliance.ManagerOption{
		compliance.WithDefaultInterval(cfg.Monitor.CheckInterval),
	}
	if cfg.Monitor.SyncEveryCheck {
		managerOpts = append(managerOpts, compliance.WithSyncEveryCheck())
	}
	manager := compliance.NewManager(store, policyCache, evaluator, executor, notifier, trustSync, trail, metrics, logger, managerOpts...)

	// Единый поллер real-time контура вместо таймера на каждую сессию
	scheduler := compliance.NewScheduler(manager, cfg.Monitor.SweepResolution, logger)
	go scheduler.Run(appCtx)

	// 6. Console API (DI: handler -> service -> engine/repo)
	authService := service.NewAuthService(pgRepo, privateKey, publicKey)
	monitorService := service.NewMonitorService(manager, pauses)
	policyService := service.NewPolicyService(pgRepo, rdb)
	auditService := service.NewAuditService(auditRepo)

	consoleSrv := server.NewConsoleServer(
		cfg,
		logger,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewMonitorHandler(monitorService),
		handler.NewPolicyHandler(policyService),
		handler.NewAuditHandler(auditService),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("compliance monitor started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("compliance monitor stopping")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоновые контуры и доливаем аудит-буфер в базу
	cancel()
	trail.Stop()
	logger.Info("compliance monitor exited properly")
}
