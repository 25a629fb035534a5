package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/compliance"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
)

// StartMonitoringRequest — тело POST /v1/monitor/start.
// Интервал принимаем в секундах, чтобы не заставлять клиентов слать
// наносекунды time.Duration.
type StartMonitoringRequest struct {
	Plan            *domain.WorkflowPlan `json:"plan"`
	Context         domain.CheckContext  `json:"context"`
	RealTime        bool                 `json:"real_time"`
	IntervalSeconds int                  `json:"interval_seconds"`
}

// CheckRequest — тело POST /v1/monitor/{workflowID}/check.
// План поставляет драйвер workflow: он мог перевыпустить этапы с момента старта.
type CheckRequest struct {
	Plan    *domain.WorkflowPlan `json:"plan"`
	Phase   domain.PlanPhase     `json:"phase"`
	Context domain.CheckContext  `json:"context"`
}

type MonitorHandler struct {
	service *service.MonitorService
}

func NewMonitorHandler(s *service.MonitorService) *MonitorHandler {
	return &MonitorHandler{service: s}
}

// Start открывает сессию надзора за workflow.
// POST /v1/monitor/start
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartMonitoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Plan == nil || req.Plan.WorkflowID == "" {
		http.Error(w, "Plan with workflow_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.Start(r.Context(), req.Plan, req.Context, req.RealTime, req.IntervalSeconds)
	if err != nil {
		if errors.Is(err, compliance.ErrSessionActive) {
			// Повторный старт — конфликт, а не внутренняя ошибка
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// Check — явная проверка на границе этапа.
// POST /v1/monitor/{workflowID}/check
func (h *MonitorHandler) Check(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Plan == nil {
		http.Error(w, "Plan is required", http.StatusBadRequest)
		return
	}
	// ID в пути — источник правды
	req.Plan.WorkflowID = workflowID

	result, err := h.service.Check(r.Context(), req.Plan, req.Phase, req.Context)
	if err != nil {
		if errors.Is(err, compliance.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Stop закрывает сессию и возвращает финальные метрики.
// POST /v1/monitor/{workflowID}/stop
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	metrics, err := h.service.Stop(r.Context(), workflowID)
	if err != nil {
		if errors.Is(err, compliance.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}

// Status — снимок сессии с последней проверкой и метриками.
// GET /v1/monitor/{workflowID}/status
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	status, err := h.service.Status(workflowID)
	if err != nil {
		if errors.Is(err, compliance.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// Violations — накопленные нарушения сессии.
// GET /v1/monitor/{workflowID}/violations
func (h *MonitorHandler) Violations(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	violations, err := h.service.Violations(workflowID)
	if err != nil {
		if errors.Is(err, compliance.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if violations == nil {
		violations = []domain.ComplianceViolation{} // [] вместо null в JSON
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(violations)
}

// Resume снимает паузу с workflow (операторское действие).
// POST /v1/workflows/{workflowID}/resume
func (h *MonitorHandler) Resume(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	if err := h.service.Resume(r.Context(), workflowID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats — сводка по всем активным сессиям для дашборда.
// GET /api/v1/dashboard/stats
func (h *MonitorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
