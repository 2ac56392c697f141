package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/bt1zar/warden/api"
	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/internal/metrics"
	"github.com/bt1zar/warden/sandbox"
	"github.com/bt1zar/warden/types"
)

// =============================================================================
// ⚙️ Execution handler
// =============================================================================

// ExecutionAuditSink is the audit surface the execution routes use.
type ExecutionAuditSink interface {
	boundary.AuditSink
	sandbox.AuditSink
}

// ExecuteHandler serves the sandboxed execution routes.
type ExecuteHandler struct {
	logger       *zap.Logger
	executor     *sandbox.Executor
	maxCodeBytes int
	maxTimeout   time.Duration

	streamOrigins []string

	// Optional collaborators, nil disables the concern.
	metrics *metrics.Collector
	audit   ExecutionAuditSink
}

// NewExecuteHandler creates an execution handler.
func NewExecuteHandler(exec *sandbox.Executor, logger *zap.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		logger:   logger,
		executor: exec,
	}
}

// WithMetrics enables metric recording.
func (h *ExecuteHandler) WithMetrics(c *metrics.Collector) *ExecuteHandler {
	h.metrics = c
	return h
}

// WithAudit attaches an audit sink to per-request guards. The executor
// carries its own sink for execution events.
func (h *ExecuteHandler) WithAudit(sink ExecutionAuditSink) *ExecuteHandler {
	h.audit = sink
	return h
}

// WithLimits caps the accepted script size and the timeout a request
// may ask for. Zero leaves a limit unset.
func (h *ExecuteHandler) WithLimits(maxCodeBytes int, maxTimeout time.Duration) *ExecuteHandler {
	h.maxCodeBytes = maxCodeBytes
	h.maxTimeout = maxTimeout
	return h
}

// WithStreamOrigins sets the origins accepted on the WebSocket route.
// "*" accepts any origin.
func (h *ExecuteHandler) WithStreamOrigins(origins []string) *ExecuteHandler {
	h.streamOrigins = origins
	return h
}

// =============================================================================
// 🎯 HTTP handlers
// =============================================================================

// HandleExecute serves POST /execute.
//
// Sandbox failures (blocked import, script error, timeout, bad root)
// are regular responses with success=false; only a malformed request is
// an HTTP error.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}

	var req api.CodeExecutionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if msg := h.checkRequest(req); msg != "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, msg, h.logger)
		return
	}
	if h.maxCodeBytes > 0 && len(req.Code) > h.maxCodeBytes {
		WriteErrorMessage(w, http.StatusRequestEntityTooLarge, types.ErrInvalidRequest,
			"code exceeds the accepted size", h.logger)
		return
	}

	resp := h.run(r.Context(), req, nil)
	WriteJSON(w, http.StatusOK, resp)
}

// HandleStream serves GET /execute/stream.
//
// The client upgrades to WebSocket, sends one execution request, and
// receives output frames as the script prints followed by a final
// result frame.
func (h *ExecuteHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	_, data, err := conn.Read(ctx)
	if err != nil {
		h.logger.Warn("websocket read failed", zap.Error(err))
		return
	}

	var wmu sync.Mutex
	writeFrame := func(frame api.StreamFrame) error {
		body, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}
		wmu.Lock()
		defer wmu.Unlock()
		return conn.Write(ctx, websocket.MessageText, body)
	}
	fail := func(msg string) {
		_ = writeFrame(api.StreamFrame{Type: api.StreamFrameError, Error: msg})
		conn.Close(websocket.StatusNormalClosure, "rejected")
	}

	var req api.CodeExecutionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fail("invalid JSON request")
		return
	}
	if msg := h.checkRequest(req); msg != "" {
		fail(msg)
		return
	}
	if h.maxCodeBytes > 0 && len(req.Code) > h.maxCodeBytes {
		fail("code exceeds the accepted size")
		return
	}

	onOutput := func(line string) {
		if err := writeFrame(api.StreamFrame{Type: api.StreamFrameOutput, Data: line}); err != nil {
			h.logger.Debug("output frame dropped", zap.Error(err))
		}
	}

	resp := h.run(ctx, req, onOutput)
	if err := writeFrame(api.StreamFrame{Type: api.StreamFrameResult, Result: &resp}); err != nil {
		h.logger.Warn("result frame write failed", zap.Error(err))
		return
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

// =============================================================================
// 🔧 Internals
// =============================================================================

// checkRequest returns a rejection message for malformed requests.
func (h *ExecuteHandler) checkRequest(req api.CodeExecutionRequest) string {
	if req.ProjectRoot == "" {
		return "projectRoot is required"
	}
	if req.Code == "" {
		return "code is required"
	}
	return ""
}

// run executes one request and converts the outcome to the wire form.
// A guard construction failure is reported in-band the way the sandbox
// reports its own failures.
func (h *ExecuteHandler) run(ctx context.Context, req api.CodeExecutionRequest, onOutput func(string)) api.CodeExecutionResponse {
	guard, err := boundary.NewGuard(req.ProjectRoot, h.logger)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordExecution("rejected", 0, 0)
		}
		return api.CodeExecutionResponse{
			Success:   false,
			Error:     errMessage(err),
			ErrorCode: string(types.GetErrorCode(err)),
		}
	}
	if h.audit != nil {
		guard = guard.WithAudit(h.audit)
	}

	timeout := time.Duration(req.Timeout) * time.Millisecond
	if h.maxTimeout > 0 && timeout > h.maxTimeout {
		h.logger.Debug("requested timeout clamped",
			zap.Int("requested_ms", req.Timeout),
			zap.Duration("max", h.maxTimeout))
		timeout = h.maxTimeout
	}

	res := h.executor.Execute(ctx, sandbox.Request{
		Guard:             guard,
		Code:              req.Code,
		AdditionalImports: req.AuthorizedImports,
		Timeout:           timeout,
		OnOutput:          onOutput,
	})

	if h.metrics != nil {
		h.metrics.RecordExecution(executionStatus(res), res.Duration, len(res.Output))
	}

	return api.CodeExecutionResponse{
		Success:       res.Success,
		Result:        renderValue(res.Value),
		Output:        res.Output,
		Stderr:        res.Stderr,
		Error:         res.Error,
		ErrorCode:     string(res.ErrorCode),
		ExecutionTime: res.Duration.Milliseconds(),
		Truncated:     res.Truncated,
	}
}

// acceptOptions derives WebSocket accept options from the configured
// origins.
func (h *ExecuteHandler) acceptOptions() *websocket.AcceptOptions {
	for _, origin := range h.streamOrigins {
		if origin == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
	}
	if len(h.streamOrigins) == 0 {
		return nil
	}
	return &websocket.AcceptOptions{OriginPatterns: h.streamOrigins}
}

// executionStatus maps a sandbox result to a metrics label.
func executionStatus(res sandbox.Result) string {
	switch {
	case res.Success:
		return "success"
	case res.ErrorCode == types.ErrBlockedImport:
		return "blocked"
	case res.ErrorCode == types.ErrTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// renderValue formats a script result for the wire. Strings pass
// through, everything else is rendered as JSON.
func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		body, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(body)
	}
}
