// Package audit persists authorization decisions without slowing down
// the request path.
package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/clinic-admin/models"
	"github.com/upb/clinic-admin/repositories"
	"go.uber.org/zap"
)

// Config holds configuration for the DecisionRecorder
type Config struct {
	BufferSize    int           // Size of the decision buffer channel
	WorkerCount   int           // Number of concurrent workers
	InsertTimeout time.Duration // Per-insert database timeout
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		WorkerCount:   4,
		InsertTimeout: 5 * time.Second,
	}
}

// DecisionRecorder writes authorization decisions to the repository from a
// pool of background workers. Record never blocks; when the buffer is full
// the decision is dropped.
type DecisionRecorder struct {
	repo          repositories.DecisionRepository
	logger        *zap.Logger
	decisions     chan *models.AuthorizationDecision
	workerCount   int
	bufferSize    int
	insertTimeout time.Duration
	wg            sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewDecisionRecorder creates a new DecisionRecorder. Zero config values
// take their defaults.
func NewDecisionRecorder(repo repositories.DecisionRepository, logger *zap.Logger, config Config) *DecisionRecorder {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	if config.InsertTimeout <= 0 {
		config.InsertTimeout = def.InsertTimeout
	}

	return &DecisionRecorder{
		repo:          repo,
		logger:        logger,
		decisions:     make(chan *models.AuthorizationDecision, config.BufferSize),
		workerCount:   config.WorkerCount,
		bufferSize:    config.BufferSize,
		insertTimeout: config.InsertTimeout,
	}
}

// Start starts the background workers
func (s *DecisionRecorder) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("decision recorder already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started decision recorder",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting decisions and waits up to timeout for the buffered
// ones to be written.
func (s *DecisionRecorder) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("decision recorder not started")
	}
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	pending := len(s.decisions)
	close(s.decisions)
	s.mu.Unlock()

	s.logger.Info("stopping decision recorder", zap.Int("pending_decisions", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("decision recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("decision recorder stop timeout after %v", timeout)
	}
}

// Record queues d for persistence. It drops d when the recorder is not
// running or the buffer is full.
func (s *DecisionRecorder) Record(d *models.AuthorizationDecision) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		s.dropped.Add(1)
		return
	}

	select {
	case s.decisions <- d:
	default:
		s.dropped.Add(1)
		s.logger.Warn("decision buffer full, dropping decision",
			zap.String("request_id", d.RequestID),
			zap.String("guard", d.Guard),
			zap.String("outcome", string(d.Outcome)))
	}
}

// worker drains the decision channel
func (s *DecisionRecorder) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("decision worker started", zap.Int("worker_id", id))

	for d := range s.decisions {
		if err := s.persist(d); err != nil {
			s.failed.Add(1)
			s.logger.Error("failed to persist decision",
				zap.Int("worker_id", id),
				zap.String("request_id", d.RequestID),
				zap.String("guard", d.Guard),
				zap.Error(err))
			continue
		}
		s.recorded.Add(1)
	}

	s.logger.Debug("decision worker stopped", zap.Int("worker_id", id))
}

func (s *DecisionRecorder) persist(d *models.AuthorizationDecision) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.insertTimeout)
	defer cancel()

	return s.repo.Insert(ctx, d)
}

// GetStats returns statistics about the recorder
func (s *DecisionRecorder) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize: s.bufferSize,
		Pending:    len(s.decisions),
		Workers:    s.workerCount,
		Running:    s.started && !s.stopped,
		Recorded:   s.recorded.Load(),
		Dropped:    s.dropped.Load(),
		Failed:     s.failed.Load(),
	}
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize int   `json:"buffer_size"`
	Pending    int   `json:"pending"`
	Workers    int   `json:"workers"`
	Running    bool  `json:"running"`
	Recorded   int64 `json:"recorded"`
	Dropped    int64 `json:"dropped"`
	Failed     int64 `json:"failed"`
}
