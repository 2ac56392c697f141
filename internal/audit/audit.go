package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/sandbox"
)

// =============================================================================
// Audit events
// =============================================================================

// Event kinds.
const (
	KindPathDecision = "path_decision"
	KindCodeScan     = "code_scan"
	KindExecution    = "execution"
)

// Event decisions.
const (
	DecisionAllowed = "allowed"
	DecisionBlocked = "blocked"
	DecisionClean   = "clean"
	DecisionFlagged = "flagged"
	DecisionSuccess = "success"
	DecisionFailure = "failure"
)

// Event is one immutable audit record.
type Event struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Time       time.Time `gorm:"index" json:"time"`
	Kind       string    `gorm:"index;size:32" json:"kind"`
	Decision   string    `gorm:"size:16" json:"decision"`
	Root       string    `json:"root,omitempty"`
	Path       string    `json:"path,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"durationMs,omitempty"`
}

// TableName fixes the storage table name.
func (Event) TableName() string { return "audit_events" }

// =============================================================================
// Recorder service
// =============================================================================

// Config bounds the persistence pipeline.
type Config struct {
	// BufferSize is the number of events that may await persistence
	// before new ones are dropped.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	return Config{BufferSize: 256}
}

// Service records audit events. All record methods are safe for
// concurrent use and never block on storage.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	events chan Event
	drops  atomic.Uint64
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var (
	_ boundary.AuditSink = (*Service)(nil)
	_ sandbox.AuditSink  = (*Service)(nil)
)

// NewService creates an audit recorder. db may be nil, in which case
// events are logged but not persisted.
func NewService(db *gorm.DB, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	s := &Service{
		logger: logger.With(zap.String("component", "audit")),
		db:     db,
	}
	if db != nil {
		if err := db.AutoMigrate(&Event{}); err != nil {
			return nil, fmt.Errorf("migrate audit schema: %w", err)
		}
		s.events = make(chan Event, cfg.BufferSize)
		s.wg.Add(1)
		go s.writeLoop()
	}

	s.logger.Info("audit service initialized",
		zap.Bool("persistent", db != nil),
		zap.Int("buffer_size", cfg.BufferSize))
	return s, nil
}

// PathDecision records a boundary validation outcome.
func (s *Service) PathDecision(root, path string, allowed bool, detail string) {
	decision := DecisionAllowed
	if !allowed {
		decision = DecisionBlocked
	}
	s.record(Event{
		Kind:     KindPathDecision,
		Decision: decision,
		Root:     root,
		Path:     path,
		Detail:   detail,
	})
}

// Scan records a code scan outcome.
func (s *Service) Scan(valid bool, findings int, score float64) {
	decision := DecisionClean
	if !valid {
		decision = DecisionFlagged
	}
	s.record(Event{
		Kind:     KindCodeScan,
		Decision: decision,
		Detail:   fmt.Sprintf("%d findings, score %.1f", findings, score),
	})
}

// Execution records a sandbox execution outcome.
func (s *Service) Execution(root string, success bool, detail string, duration time.Duration) {
	decision := DecisionSuccess
	if !success {
		decision = DecisionFailure
	}
	s.record(Event{
		Kind:       KindExecution,
		Decision:   decision,
		Root:       root,
		Detail:     detail,
		DurationMS: duration.Milliseconds(),
	})
}

// Recent returns up to limit events, newest first. Without a database
// it returns an empty slice.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.db == nil {
		return []Event{}, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	events := make([]Event, 0, limit)
	if err := s.db.WithContext(ctx).Order("time DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return events, nil
}

// Drops returns the number of events dropped because the buffer was full.
func (s *Service) Drops() uint64 {
	return s.drops.Load()
}

// Close flushes pending events and stops the writer.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.events != nil {
		close(s.events)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("audit service closed", zap.Uint64("dropped", s.drops.Load()))
	return nil
}

func (s *Service) record(evt Event) {
	evt.ID = uuid.NewString()
	evt.Time = time.Now().UTC()

	s.logger.Info("audit event",
		zap.String("kind", evt.Kind),
		zap.String("decision", evt.Decision),
		zap.String("root", evt.Root),
		zap.String("path", evt.Path),
		zap.String("detail", evt.Detail),
		zap.Int64("duration_ms", evt.DurationMS))

	if s.events == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- evt:
	default:
		// Persistence must never block a request; drop and count.
		if n := s.drops.Add(1); n == 1 || n%100 == 0 {
			s.logger.Warn("audit buffer full, dropping events", zap.Uint64("dropped", n))
		}
	}
}

func (s *Service) writeLoop() {
	defer s.wg.Done()
	for evt := range s.events {
		if err := s.db.Create(&evt).Error; err != nil {
			s.logger.Error("audit event write failed",
				zap.String("id", evt.ID), zap.Error(err))
		}
	}
}
