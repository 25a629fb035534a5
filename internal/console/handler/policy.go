package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/service"
)

type PolicyHandler struct {
	service *service.PolicyService
}

func NewPolicyHandler(s *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: s}
}

// Get возвращает детали конкретной политики по её ID.
// GET /v1/policies/{id}
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	// Извлекаем ID из параметров пути chi
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Policy ID is required", http.StatusBadRequest)
		return
	}

	policy, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to retrieve policy: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Если политика не найдена (nil), возвращаем 404
	if policy == nil {
		http.Error(w, "Policy not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(policy); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}

// List возвращает весь каталог для консоли
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.GetAll(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch policies", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(policies)
}

// Refresh инициирует перечитывание каталога всеми инстансами монитора.
// Сами строки правятся внешним инструментом — консоль только сигналит.
// POST /v1/policies/refresh
func (h *PolicyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.NotifyRefresh(r.Context()); err != nil {
		http.Error(w, "Failed to broadcast refresh", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
