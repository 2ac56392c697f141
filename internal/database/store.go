package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// =============================================================================
// 🗄️ Audit store
// =============================================================================

// Config bounds the store's connection usage.
type Config struct {
	// Maximum open connections. SQLite serializes writers, so anything
	// above 1 only buys contention.
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// Maximum idle connections kept around between requests.
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`

	// Maximum lifetime of a connection, zero keeps them forever.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// Interval between background pings, zero disables the check.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig returns the connection settings for a local file store.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// Store wraps the GORM handle over the SQLite audit database.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string, config Config, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = def.MaxOpenConns
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = def.MaxIdleConns
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	s := &Store{
		db:     db,
		sqlDB:  sqlDB,
		config: config,
		logger: logger.With(zap.String("component", "database")),
	}

	if config.HealthCheckInterval > 0 {
		go s.healthCheckLoop()
	}

	s.logger.Info("audit store opened",
		zap.String("path", path),
		zap.Int("max_open_conns", config.MaxOpenConns),
	)
	return s, nil
}

// =============================================================================
// 🎯 Core methods
// =============================================================================

// DB returns the GORM handle.
func (s *Store) DB() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return s.sqlDB.PingContext(ctx)
}

// Stats returns the connection statistics.
func (s *Store) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sqlDB.Stats()
}

// Close closes the underlying connections.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.logger.Info("closing audit store")

	return s.sqlDB.Close()
}

// =============================================================================
// 🏥 Health check
// =============================================================================

func (s *Store) healthCheckLoop() {
	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return
		}
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ping(ctx); err != nil {
			s.logger.Error("database health check failed", zap.Error(err))
		}
		cancel()
	}
}
