package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/spaceai-compliance-monitor/internal/console/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetRecords возвращает след сессий с поддержкой фильтрации
// GET /v1/audit?session_id=...&action=...
func (h *AuditHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	// Извлекаем фильтры из Query-параметров
	sessionID := r.URL.Query().Get("session_id")
	action := r.URL.Query().Get("action")

	records, err := h.service.FetchRecords(r.Context(), sessionID, action)
	if err != nil {
		http.Error(w, "Failed to fetch audit records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
