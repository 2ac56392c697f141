package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bt1zar/warden/api"
	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/internal/cache"
	"github.com/bt1zar/warden/internal/metrics"
	"github.com/bt1zar/warden/scanner"
	"github.com/bt1zar/warden/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🛂 Validation handler
// =============================================================================

// ValidationAuditSink is the audit surface the validation routes use.
type ValidationAuditSink interface {
	boundary.AuditSink
	Scan(valid bool, findings int, score float64)
}

// ValidateHandler serves the path and code validation routes.
type ValidateHandler struct {
	logger       *zap.Logger
	scanner      *scanner.Scanner
	maxCodeBytes int
	scanTTL      time.Duration

	// Optional collaborators, nil disables the concern.
	cache   *cache.Manager
	metrics *metrics.Collector
	audit   ValidationAuditSink
}

// NewValidateHandler creates a validation handler.
func NewValidateHandler(sc *scanner.Scanner, logger *zap.Logger) *ValidateHandler {
	return &ValidateHandler{
		logger:  logger,
		scanner: sc,
	}
}

// WithCache enables scan report caching.
func (h *ValidateHandler) WithCache(cm *cache.Manager, ttl time.Duration) *ValidateHandler {
	h.cache = cm
	h.scanTTL = ttl
	return h
}

// WithMetrics enables metric recording.
func (h *ValidateHandler) WithMetrics(c *metrics.Collector) *ValidateHandler {
	h.metrics = c
	return h
}

// WithAudit attaches an audit sink to scans and per-request guards.
func (h *ValidateHandler) WithAudit(sink ValidationAuditSink) *ValidateHandler {
	h.audit = sink
	return h
}

// WithLimits caps the accepted payload size. Zero means unlimited.
func (h *ValidateHandler) WithLimits(maxCodeBytes int) *ValidateHandler {
	h.maxCodeBytes = maxCodeBytes
	return h
}

// =============================================================================
// 🎯 HTTP handlers
// =============================================================================

// HandlePath serves POST /validate/path.
//
// A path outside the boundary is a regular response with valid=false;
// only a bad project root is an HTTP error.
func (h *ValidateHandler) HandlePath(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}

	var req api.PathValidationRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ProjectRoot == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"projectRoot is required", h.logger)
		return
	}
	if req.Path == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"path is required", h.logger)
		return
	}

	guard, err := h.newGuard(req.ProjectRoot)
	if err != nil {
		WriteError(w, asTypedError(err), h.logger)
		return
	}

	resolved, err := guard.ValidatePath(req.Path)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPathValidation(false)
		}
		WriteJSON(w, http.StatusOK, api.PathValidationResponse{
			Valid: false,
			Error: errMessage(err),
		})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPathValidation(true)
	}
	h.logger.Info("path validated",
		zap.String("project_root", req.ProjectRoot),
		zap.String("path", req.Path),
		zap.String("resolved", resolved),
	)
	WriteJSON(w, http.StatusOK, api.PathValidationResponse{
		Valid:        true,
		ResolvedPath: resolved,
	})
}

// HandleCode serves POST /validate/code.
func (h *ValidateHandler) HandleCode(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}

	var req api.CodeValidationRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if h.maxCodeBytes > 0 && len(req.Code) > h.maxCodeBytes {
		WriteErrorMessage(w, http.StatusRequestEntityTooLarge, types.ErrInvalidRequest,
			"code exceeds the accepted size", h.logger)
		return
	}

	report := h.scanCached(r, req.Code)
	WriteJSON(w, http.StatusOK, api.NewCodeValidationResponse(report))
}

// HandleOWASP serves POST /validate/owasp.
//
// The body is an arbitrary JSON document; its serialized form is
// scanned so secrets and injection patterns inside configuration
// values are caught by the same tables as code.
func (h *ValidateHandler) HandleOWASP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		apiErr := types.NewError(types.ErrInvalidRequest, "invalid JSON body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
		WriteError(w, apiErr, h.logger)
		return
	}

	serialized, err := json.Marshal(doc)
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError,
			"cannot serialize document", h.logger)
		return
	}
	if h.maxCodeBytes > 0 && len(serialized) > h.maxCodeBytes {
		WriteErrorMessage(w, http.StatusRequestEntityTooLarge, types.ErrInvalidRequest,
			"document exceeds the accepted size", h.logger)
		return
	}

	report := h.scanCached(r, string(serialized))
	WriteJSON(w, http.StatusOK, api.NewCodeValidationResponse(report))
}

// =============================================================================
// 🔧 Internals
// =============================================================================

// scanCached runs a scan, serving and filling the report cache when one
// is configured. Cache failures fall back to scanning.
func (h *ValidateHandler) scanCached(r *http.Request, source string) scanner.Report {
	var key string
	if h.cache != nil {
		key = cache.ScanKey(source)

		var cached scanner.Report
		if err := h.cache.GetJSON(r.Context(), key, &cached); err == nil {
			if h.metrics != nil {
				h.metrics.RecordCacheHit("scan")
			}
			return cached
		} else if err != cache.ErrCacheMiss {
			h.logger.Warn("scan cache read failed", zap.Error(err))
		}
		if h.metrics != nil {
			h.metrics.RecordCacheMiss("scan")
		}
	}

	start := time.Now()
	report := h.scanner.Scan(source)

	if h.metrics != nil {
		h.metrics.RecordScan(report.Valid, time.Since(start), report.ComplianceScore)
		for _, v := range report.Vulnerabilities {
			h.metrics.RecordVulnerability(v.Category, string(v.Severity))
		}
	}
	if h.audit != nil {
		h.audit.Scan(report.Valid, len(report.Vulnerabilities), report.ComplianceScore)
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), key, report, h.scanTTL); err != nil {
			h.logger.Warn("scan cache write failed", zap.Error(err))
		}
	}

	return report
}

// newGuard builds a per-request boundary guard.
func (h *ValidateHandler) newGuard(root string) (*boundary.Guard, error) {
	guard, err := boundary.NewGuard(root, h.logger)
	if err != nil {
		return nil, err
	}
	if h.audit != nil {
		guard = guard.WithAudit(h.audit)
	}
	return guard, nil
}

// errMessage extracts the human readable message of a typed error.
func errMessage(err error) string {
	if te, ok := err.(*types.Error); ok {
		return te.Message
	}
	return err.Error()
}

// asTypedError coerces err into a *types.Error.
func asTypedError(err error) *types.Error {
	if te, ok := err.(*types.Error); ok {
		return te
	}
	return types.NewError(types.ErrInternalError, err.Error())
}
