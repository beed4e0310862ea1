// Package session drives the retry loop around single connection attempts
// until one succeeds, one fails fatally or the session deadline passes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/acinfinity"
	"github.com/srg/acinf/internal/connection"
	"github.com/srg/acinf/internal/device"
)

const (
	// DefaultDeadline bounds a whole session.
	DefaultDeadline = 60 * time.Second

	// DefaultAttemptTimeout caps a single attempt.
	DefaultAttemptTimeout = 20 * time.Second
)

// Progress phases reported to a ProgressCallback.
const (
	PhaseConnecting = "Connecting"
	PhaseRetrying   = "Retrying"
	PhaseDone       = "Done"
)

// State is the lifecycle state of a session.
type State uint8

const (
	// StatePending means no attempt has finished yet.
	StatePending State = iota

	// StateRetrying means at least one attempt failed and another one runs.
	StateRetrying

	// StateSucceeded means an attempt returned a response.
	StateSucceeded

	// StateFailed means the session ended without a response.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRetrying:
		return "RETRYING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Attempter runs one bounded exchange. *connection.Manager implements it.
type Attempter interface {
	Attempt(ctx context.Context, addr device.Address, cmd acinfinity.Command, timeout time.Duration) connection.Outcome
}

// ProgressCallback is called when the session phase changes.
type ProgressCallback func(phase string)

// Result is the outcome of a successful session.
type Result struct {
	Response acinfinity.Response
	Attempts int
	Elapsed  time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithDeadline sets the session deadline measured from the start of Run.
func WithDeadline(d time.Duration) Option {
	return func(s *Session) { s.deadline = d }
}

// WithAttemptTimeout sets the per-attempt cap.
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Session) { s.attemptTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.timeNow = now }
}

// WithProgress registers a phase callback.
func WithProgress(cb ProgressCallback) Option {
	return func(s *Session) { s.progress = cb }
}

// Session retries a command against one controller until the deadline.
type Session struct {
	attempter      Attempter
	logger         *logrus.Logger
	deadline       time.Duration
	attemptTimeout time.Duration
	progress       ProgressCallback

	// timeNow returns the current time. Defaults to time.Now.
	timeNow func() time.Time

	mu    sync.RWMutex
	state State
	id    string
}

// New creates a Session.
func New(attempter Attempter, logger *logrus.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Session{
		attempter:      attempter,
		logger:         logger,
		deadline:       DefaultDeadline,
		attemptTimeout: DefaultAttemptTimeout,
		progress:       func(string) {},
		timeNow:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.attemptTimeout <= 0 || s.attemptTimeout > s.deadline {
		s.attemptTimeout = s.deadline
	}
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ID returns the identifier of the last Run, used in log fields.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes cmd against addr. It returns a Result on success, a
// *TimeoutError once the deadline passes, a *FatalError for failures no
// retry can fix, or a wrapped context.Canceled when ctx is cancelled.
// Attempts run back to back without delay.
func (s *Session) Run(ctx context.Context, addr device.Address, cmd acinfinity.Command) (*Result, error) {
	id := uuid.New().String()
	s.mu.Lock()
	s.id = id
	s.state = StatePending
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"session": id,
		"address": addr.String(),
		"command": cmd.String(),
	})

	start := s.timeNow()
	deadline := start.Add(s.deadline)
	log.WithField("deadline", s.deadline).Debug("Session started")
	s.progress(PhaseConnecting)

	var (
		attempts   int
		lastErr    error
		lastReason connection.Reason
	)
	for {
		if err := ctx.Err(); err != nil {
			s.setState(StateFailed)
			s.progress(PhaseDone)
			return nil, fmt.Errorf("session cancelled after %d attempts: %w", attempts, err)
		}

		now := s.timeNow()
		if !now.Before(deadline) {
			s.setState(StateFailed)
			s.progress(PhaseDone)
			log.WithField("attempts", attempts).Debug("Session deadline exceeded")
			return nil, &TimeoutError{
				Attempts:   attempts,
				Elapsed:    now.Sub(start),
				LastReason: lastReason,
				Last:       lastErr,
			}
		}

		timeout := min(s.attemptTimeout, deadline.Sub(now))
		attempts++
		out := s.attempter.Attempt(ctx, addr, cmd, timeout)

		switch out.Kind {
		case connection.Success:
			s.setState(StateSucceeded)
			s.progress(PhaseDone)
			elapsed := s.timeNow().Sub(start)
			log.WithFields(logrus.Fields{
				"attempts": attempts,
				"elapsed":  elapsed,
			}).Debug("Session succeeded")
			return &Result{Response: out.Response, Attempts: attempts, Elapsed: elapsed}, nil

		case connection.Retryable:
			lastErr, lastReason = out.Err, out.Reason
			s.setState(StateRetrying)
			log.WithFields(logrus.Fields{
				"reason":    out.Reason,
				"attempt":   attempts,
				"remaining": deadline.Sub(s.timeNow()).Round(time.Millisecond),
				"error":     out.Err,
			}).Warn("Attempt failed, retrying")
			s.progress(PhaseRetrying)

		default:
			s.setState(StateFailed)
			s.progress(PhaseDone)
			if out.Reason == connection.ReasonCancelled {
				if errors.Is(out.Err, context.Canceled) {
					return nil, fmt.Errorf("session cancelled after %d attempts: %w", attempts, out.Err)
				}
				return nil, fmt.Errorf("session cancelled after %d attempts: %w: %w", attempts, context.Canceled, out.Err)
			}
			return nil, &FatalError{Reason: out.Reason, Attempts: attempts, Err: out.Err}
		}
	}
}
