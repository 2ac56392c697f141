package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/bt1zar/warden/api"
	"github.com/bt1zar/warden/internal/audit"
	"github.com/bt1zar/warden/types"
)

// =============================================================================
// 📜 Audit trail handler
// =============================================================================

// Query limit bounds for /audit/events.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditHandler serves audit trail queries.
type AuditHandler struct {
	logger  *zap.Logger
	service *audit.Service
}

// NewAuditHandler creates an audit handler. A nil service answers every
// query with 503, matching a deployment that runs without persistence.
func NewAuditHandler(service *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		logger:  logger,
		service: service,
	}
}

// HandleEvents serves GET /audit/events?limit=N, newest first.
func (h *AuditHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, h.logger) {
		return
	}
	if h.service == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable,
			"audit persistence is disabled", h.logger)
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
				"limit must be a positive integer", h.logger)
			return
		}
		limit = parsed
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	events, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		apiErr := types.NewError(types.ErrInternalError, "audit query failed").WithCause(err)
		WriteError(w, apiErr, h.logger)
		return
	}

	WriteSuccess(w, api.AuditEventsData{
		Events:  events,
		Count:   len(events),
		Dropped: h.service.Drops(),
	})
}
