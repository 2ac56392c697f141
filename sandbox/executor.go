package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/types"
)

// AuditSink receives a record for every finished execution.
// Implementations must be safe for concurrent use.
type AuditSink interface {
	Execution(root string, success bool, detail string, duration time.Duration)
}

// Config bounds a single executor's resource usage.
type Config struct {
	// Timeout is the per-execution wall clock budget. A Request may
	// override it for one call.
	Timeout time.Duration

	// MaxOutputBytes caps captured print output. Excess is dropped and
	// the result is flagged as truncated.
	MaxOutputBytes int

	// MaxSteps caps abstract interpreter steps per execution.
	MaxSteps uint64

	// MaxConcurrent bounds the number of in-flight executions.
	MaxConcurrent int
}

// DefaultConfig returns the execution limits used when a Config field
// is left unset.
func DefaultConfig() Config {
	return Config{
		Timeout:        60 * time.Second,
		MaxOutputBytes: 1 << 20,
		MaxSteps:       10_000_000,
		MaxConcurrent:  8,
	}
}

// Request describes one execution.
type Request struct {
	// Guard scopes every file capability granted to the script.
	Guard *boundary.Guard

	// Code is the script source.
	Code string

	// AdditionalImports extends the default authorized module list for
	// this call. The merged list is advisory: modules outside it are not
	// loadable anyway because the namespace carries no import machinery.
	AdditionalImports []string

	// Timeout overrides Config.Timeout when positive.
	Timeout time.Duration

	// OnOutput, when set, receives each print line as it is produced.
	OnOutput func(line string)
}

// Result reports the outcome of one execution.
type Result struct {
	Success   bool
	ErrorCode types.ErrorCode // empty on success
	Value     any             // the script's "result" (or "_") global, nil when unset
	Output    string          // captured print output
	Stderr    string          // evaluation backtrace, if any
	Error     string          // human readable failure description
	Duration  time.Duration
	Truncated bool // Output hit MaxOutputBytes
}

// Stats are cumulative executor counters.
type Stats struct {
	Total     uint64
	Succeeded uint64
	Failed    uint64
	Blocked   uint64
	TimedOut  uint64
}

// Executor evaluates scripts inside a capability-scoped interpreter.
// The zero value is not usable; construct with NewExecutor.
type Executor struct {
	cfg    Config
	logger *zap.Logger
	sem    *semaphore.Weighted
	audit  AuditSink

	mu    sync.Mutex
	stats Stats
}

// NewExecutor builds an executor, filling unset limits from DefaultConfig.
func NewExecutor(cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	return &Executor{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "sandbox")),
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// WithAudit attaches an audit sink and returns the executor.
func (e *Executor) WithAudit(sink AuditSink) *Executor {
	e.audit = sink
	return e
}

// GetStats returns a snapshot of the cumulative counters.
func (e *Executor) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

type evalOutcome struct {
	globals starlark.StringDict
	err     error
}

// Execute runs req.Code to completion or failure. Runtime failures are
// reported in the Result rather than as a Go error: scripts are
// untrusted input, so a crashing script is a normal outcome rather than
// a fault of the caller.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	if req.Guard == nil {
		return e.finish(req, Result{
			ErrorCode: types.ErrExecutionFailure,
			Error:     "a project boundary guard is required",
		}, start)
	}

	e.logger.Info("executing code",
		zap.String("root", req.Guard.Root()),
		zap.Int("code_bytes", len(req.Code)))

	if blocked := CheckBlockedImports(req.Code); len(blocked) > 0 {
		e.logger.Warn("blocked import rejected", zap.Strings("modules", blocked))
		return e.finish(req, Result{
			ErrorCode: types.ErrBlockedImport,
			Error:     "Blocked import detected: " + strings.Join(blocked, ", "),
		}, start)
	}

	imports := MergeAuthorizedImports(req.AdditionalImports)
	e.logger.Debug("authorized imports merged", zap.Strings("imports", imports))

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return e.finish(req, Result{
			ErrorCode: types.ErrExecutionFailure,
			Error:     fmt.Sprintf("could not acquire execution slot: %v", err),
		}, start)
	}
	defer e.sem.Release(1)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	out := &limitedBuffer{max: e.cfg.MaxOutputBytes}
	thread := &starlark.Thread{
		Name: "sandbox",
		// Print hands over the message without a trailing newline;
		// append one so captured output reads like a terminal.
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg + "\n")
			if req.OnOutput != nil {
				req.OnOutput(msg + "\n")
			}
		},
	}
	if e.cfg.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.cfg.MaxSteps)
	}

	done := make(chan evalOutcome, 1)
	go func() {
		globals, err := starlark.ExecFileOptions(fileOptions(), thread, "sandbox.star", req.Code, newPredeclared(req.Guard))
		done <- evalOutcome{globals: globals, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		outcome   evalOutcome
		timedOut  bool
		cancelled bool
	)
	select {
	case outcome = <-done:
	case <-timer.C:
		thread.Cancel("timeout")
		outcome = <-done
		// If evaluation finished while the timer was firing, keep the
		// real outcome.
		timedOut = outcome.err != nil
	case <-ctx.Done():
		thread.Cancel("cancelled")
		outcome = <-done
		if outcome.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				timedOut = true
			} else {
				cancelled = true
			}
		}
	}

	res := Result{
		Output:    out.String(),
		Truncated: out.Truncated(),
	}
	switch {
	case timedOut:
		res.ErrorCode = types.ErrTimeout
		res.Error = fmt.Sprintf("execution timed out after %s", timeout)
		res.Stderr = backtrace(outcome.err)
	case cancelled:
		res.ErrorCode = types.ErrExecutionFailure
		res.Error = "execution cancelled"
	case outcome.err != nil:
		res.ErrorCode = types.ErrExecutionFailure
		res.Error = outcome.err.Error()
		res.Stderr = backtrace(outcome.err)
	default:
		res.Success = true
		if v, ok := outcome.globals["result"]; ok {
			res.Value = toGoValue(v)
		} else if v, ok := outcome.globals["_"]; ok {
			res.Value = toGoValue(v)
		}
	}
	return e.finish(req, res, start)
}

func (e *Executor) finish(req Request, res Result, start time.Time) Result {
	res.Duration = time.Since(start)

	e.mu.Lock()
	e.stats.Total++
	switch {
	case res.Success:
		e.stats.Succeeded++
	case res.ErrorCode == types.ErrBlockedImport:
		e.stats.Blocked++
	case res.ErrorCode == types.ErrTimeout:
		e.stats.TimedOut++
	default:
		e.stats.Failed++
	}
	e.mu.Unlock()

	if res.Success {
		e.logger.Info("execution completed",
			zap.Duration("duration", res.Duration),
			zap.Int("output_bytes", len(res.Output)))
	} else {
		e.logger.Warn("execution failed",
			zap.String("error_code", string(res.ErrorCode)),
			zap.String("error", res.Error),
			zap.Duration("duration", res.Duration))
	}

	if e.audit != nil && req.Guard != nil {
		detail := "ok"
		if !res.Success {
			detail = res.Error
		}
		e.audit.Execution(req.Guard.Root(), res.Success, detail, res.Duration)
	}
	return res
}

// backtrace extracts the formatted call stack from an evaluation error.
func backtrace(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	return ""
}

// fileOptions enables the dialect extensions (sets, while loops, top
// level control flow, global reassignment, recursion) that scripts
// written in everyday Python idiom expect.
func fileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// limitedBuffer is a concurrency safe output sink with a hard size cap.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *limitedBuffer) WriteString(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && b.buf.Len()+len(s) > b.max {
		if remain := b.max - b.buf.Len(); remain > 0 {
			b.buf.WriteString(s[:remain])
		}
		b.truncated = true
		return
	}
	b.buf.WriteString(s)
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
