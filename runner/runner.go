package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/session"
)

// ErrSessionBusy is returned when a session already has an active run.
var ErrSessionBusy = errors.New("session has an active run")

// ErrNoActiveRun is returned by Cancel for idle sessions.
var ErrNoActiveRun = errors.New("no active run for session")

// Agent is the loop the runner drives.
type Agent interface {
	Run(ctx context.Context, msgs []core.Message) ([]core.Message, error)
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns bounds runs across all sessions.
	MaxConcurrentRuns int64
	SessionStore      session.Store
	Logger            logging.Logger
}

// Runner coordinates conversations. Public methods are safe for concurrent use.
type Runner struct {
	agent  Agent
	store  session.Store
	logger logging.Logger
	sem    *semaphore.Weighted

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New constructs a Runner with optional overrides.
func New(agent Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		SessionStore:      session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 1
	}

	return &Runner{
		agent:      agent,
		store:      opts.SessionStore,
		logger:     logging.OrNoOp(opts.Logger),
		sem:        semaphore.NewWeighted(opts.MaxConcurrentRuns),
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Chat sends input to the session and returns the final assistant message.
// The stored transcript is only replaced when the run succeeds.
func (r *Runner) Chat(ctx context.Context, sessionID, input string) (core.Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if _, busy := r.activeRuns[sessionID]; busy {
		r.mu.Unlock()
		return core.Message{}, ErrSessionBusy
	}
	r.activeRuns[sessionID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, sessionID)
		r.mu.Unlock()
	}()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return core.Message{}, err
	}
	defer r.sem.Release(1)

	history, err := r.store.Get(sessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return core.Message{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	msgs := append(history, core.NewHumanMessage(input))

	r.logger.Debug("runner.chat.start", "session", sessionID, "history", len(history))

	out, err := r.agent.Run(ctx, msgs)
	if err != nil {
		r.logger.Warn("runner.chat.failed", "session", sessionID, "error", err.Error())
		return core.Message{}, err
	}

	if err := r.store.Save(sessionID, out); err != nil {
		return core.Message{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	if len(out) == 0 {
		return core.Message{}, errors.New("agent returned an empty transcript")
	}

	return out[len(out)-1], nil
}

// History returns the stored transcript of a session (empty if unknown).
func (r *Runner) History(sessionID string) ([]core.Message, error) {
	msgs, err := r.store.Get(sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return msgs, err
}

// Reset forgets a session.
func (r *Runner) Reset(sessionID string) error {
	return r.store.Delete(sessionID)
}

// Cancel aborts the active run of a session.
func (r *Runner) Cancel(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.activeRuns[sessionID]
	if !ok {
		return ErrNoActiveRun
	}
	cancel()

	return nil
}
