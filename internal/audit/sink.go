// Package audit records security and user-action events. Emit never blocks
// and never fails; forwarding to the external log store is best-effort.
package audit

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/api"
	"tantalus-boxing/internal/config"
	"tantalus-boxing/internal/constants"
)

const service = "tantalus-boxing"

type Level string

const (
	LevelInfo        Level = "info"
	LevelWarn        Level = "warn"
	LevelError       Level = "error"
	LevelSecurity    Level = "security"
	LevelPerformance Level = "performance"
	LevelUserAction  Level = "user_action"
)

type Forwarder interface {
	Enabled() bool
	Send(ctx context.Context, entry api.LogEntry) error
}

type Sink struct {
	logger     zerolog.Logger
	forwarder  Forwarder
	forwardAll bool
	timeout    time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	queue   chan api.LogEntry
	closed  bool
	started bool
	done    chan struct{}
	dropped atomic.Int64
}

func NewSink(cfg *config.Config, client *api.LogStoreClient, logger zerolog.Logger) *Sink {
	return New(client, cfg.ProductionLike(), constants.AuditQueueSize, logger)
}

// New builds a sink. forwardAll sends every level to forwarder; otherwise
// only security events leave the process.
func New(forwarder Forwarder, forwardAll bool, queueSize int, logger zerolog.Logger) *Sink {
	return &Sink{
		logger:     logger.With().Str("component", "audit").Logger(),
		forwarder:  forwarder,
		forwardAll: forwardAll,
		timeout:    constants.LogSinkTimeout,
		now:        time.Now,
		queue:      make(chan api.LogEntry, queueSize),
		done:       make(chan struct{}),
	}
}

func (s *Sink) Emit(level Level, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	s.logLocal(level, message, metadata)

	if !s.shouldForward(level) {
		return
	}

	entry := api.LogEntry{
		Level:     string(level),
		Message:   message,
		Metadata:  maps.Clone(metadata),
		Timestamp: s.now().UTC(),
		Service:   service,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
		s.logger.Warn().Str("level", string(level)).Str("message", message).Msg("audit queue full, event dropped")
	}
}

func (s *Sink) Security(message string, metadata map[string]any) {
	s.Emit(LevelSecurity, message, metadata)
}

func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Sink) shouldForward(level Level) bool {
	if s.forwarder == nil || !s.forwarder.Enabled() {
		return false
	}
	return level == LevelSecurity || s.forwardAll
}

func (s *Sink) logLocal(level Level, message string, metadata map[string]any) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = s.logger.Error()
	case LevelWarn, LevelSecurity:
		ev = s.logger.Warn()
	case LevelPerformance:
		ev = s.logger.Debug()
	default:
		ev = s.logger.Info()
	}
	ev.Str("audit_level", string(level)).Fields(metadata).Msg(message)
}

// Start launches the forwarding worker.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.run()
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.forwarder.Send(ctx, entry); err != nil {
			s.logger.Debug().Err(err).Str("level", entry.Level).Msg("failed to forward audit event")
		}
		cancel()
	}
}

// Stop closes the queue and waits for queued events to be forwarded or for
// ctx to expire, whichever comes first.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
