package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/handler"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler    *handler.AuthHandler    // /auth/token
	monitorHandler *handler.MonitorHandler // /v1/monitor, /v1/workflows, dashboard
	policyHandler  *handler.PolicyHandler  // /v1/policies
	auditHandler   *handler.AuditHandler   // /v1/audit (Logs)
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	monitorH *handler.MonitorHandler,
	policyH *handler.PolicyHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		cfg:            cfg,
		authValidator:  validator,
		authHandler:    authH,
		monitorHandler: monitorH,
		policyHandler:  policyH,
		auditHandler:   auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Dashboard & Stats
		r.Get("/api/v1/dashboard/stats", s.monitorHandler.GetStats)

		// Жизненный цикл надзора за workflow
		r.Route("/v1/monitor", func(r chi.Router) {
			r.Post("/start", s.monitorHandler.Start) // Открытие сессии
			r.Route("/{workflowID}", func(r chi.Router) {
				r.Post("/check", s.monitorHandler.Check)        // Проверка на границе этапа
				r.Post("/stop", s.monitorHandler.Stop)          // Закрытие + финальные метрики
				r.Get("/status", s.monitorHandler.Status)       // Снимок сессии
				r.Get("/violations", s.monitorHandler.Violations) // Накопленные нарушения
			})
		})

		// Снятие паузы (операторское действие после вмешательства)
		r.Post("/v1/workflows/{workflowID}/resume", s.monitorHandler.Resume)

		// Каталог политик (read-only + сигнал перечитывания)
		r.Route("/v1/policies", func(r chi.Router) {
			r.Get("/", s.policyHandler.List)            // Весь каталог
			r.Post("/refresh", s.policyHandler.Refresh) // Инвалидация кэшей мониторов
			r.Get("/{id}", s.policyHandler.Get)         // Детали политики
		})

		// Аудит и Логи (Observability)
		r.Get("/v1/audit", s.auditHandler.GetRecords)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
