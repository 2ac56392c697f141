package api

import (
	"github.com/bt1zar/warden/internal/audit"
	"github.com/bt1zar/warden/scanner"
)

// =============================================================================
// Path validation types
// =============================================================================

// PathValidationRequest asks whether a path stays inside a project root.
type PathValidationRequest struct {
	// Project root directory that bounds the path.
	ProjectRoot string `json:"projectRoot"`
	// Path to validate, absolute or relative to the root.
	Path string `json:"path"`
}

// PathValidationResponse reports the validation outcome. A rejected
// path is a regular response with Valid=false, not an HTTP error.
type PathValidationResponse struct {
	Valid bool `json:"valid"`
	// Canonical absolute path, set when valid.
	ResolvedPath string `json:"resolvedPath,omitempty"`
	// Rejection reason, set when invalid.
	Error string `json:"error,omitempty"`
}

// =============================================================================
// Code validation types
// =============================================================================

// CodeValidationRequest asks for a vulnerability scan of source text.
type CodeValidationRequest struct {
	Code string `json:"code"`
	// Accepted for client compatibility, not used by the scan.
	ProjectRoot       string   `json:"projectRoot,omitempty"`
	AuthorizedImports []string `json:"authorizedImports,omitempty"`
}

// CodeValidationResponse carries the scan report.
type CodeValidationResponse struct {
	Valid           bool                    `json:"valid"`
	Vulnerabilities []scanner.Vulnerability `json:"vulnerabilities"`
	ComplianceScore float64                 `json:"complianceScore"`
}

// NewCodeValidationResponse converts a scan report to its wire form.
func NewCodeValidationResponse(report scanner.Report) CodeValidationResponse {
	return CodeValidationResponse{
		Valid:           report.Valid,
		Vulnerabilities: report.Vulnerabilities,
		ComplianceScore: report.ComplianceScore,
	}
}

// =============================================================================
// Code execution types
// =============================================================================

// CodeExecutionRequest asks for a sandboxed script run.
type CodeExecutionRequest struct {
	// Project root the script's file capabilities are confined to.
	ProjectRoot string `json:"projectRoot"`
	// Script source.
	Code string `json:"code"`
	// Extra import names allowed on top of the default set.
	AuthorizedImports []string `json:"authorizedImports,omitempty"`
	// Wall clock budget in milliseconds, 0 uses the server default.
	Timeout int `json:"timeout,omitempty"`
}

// CodeExecutionResponse reports the run outcome. Failures inside the
// sandbox (blocked import, script error, timeout) are regular responses
// with Success=false.
type CodeExecutionResponse struct {
	Success bool `json:"success"`
	// Rendered result value, omitted when the script produced none.
	Result string `json:"result,omitempty"`
	// Captured print output.
	Output string `json:"output,omitempty"`
	// Evaluation backtrace, if any.
	Stderr string `json:"stderr,omitempty"`
	// Failure description.
	Error string `json:"error,omitempty"`
	// Machine readable failure class.
	ErrorCode string `json:"errorCode,omitempty"`
	// Elapsed wall clock in milliseconds.
	ExecutionTime int64 `json:"executionTime"`
	// True when output hit the capture cap.
	Truncated bool `json:"truncated,omitempty"`
}

// =============================================================================
// Execution stream frames
// =============================================================================

// Stream frame kinds sent over /execute/stream.
const (
	StreamFrameOutput = "output"
	StreamFrameResult = "result"
	StreamFrameError  = "error"
)

// StreamFrame is one WebSocket message of a streamed execution. Output
// frames arrive as the script prints; the final frame carries either
// the full result or a transport level error.
type StreamFrame struct {
	Type string `json:"type"`
	// Print payload for output frames.
	Data string `json:"data,omitempty"`
	// Final outcome for result frames.
	Result *CodeExecutionResponse `json:"result,omitempty"`
	// Failure description for error frames.
	Error string `json:"error,omitempty"`
}

// =============================================================================
// Service types
// =============================================================================

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// AuditEventsData is the payload of an audit trail query.
type AuditEventsData struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
	// Events dropped since startup because the write buffer was full.
	Dropped uint64 `json:"dropped"`
}
