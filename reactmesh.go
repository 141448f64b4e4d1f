// Package reactmesh provides a high-level façade over the ReAct agent loop and
// its supporting services (capability assembly, backends, sessions and
// logging). Most applications interact with this package by:
//  1. Loading a config.Config (defaults, YAML file, environment)
//  2. Creating a ReactMesh via New()
//  3. Asking one-shot questions (Ask) or holding conversations (Chat)
//
// All defaults are safe for local development; production deployments
// typically supply a durable session store and a structured logger.
package reactmesh

import (
	"context"
	"time"

	"github.com/hupe1980/reactmesh/agent"
	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/model/provider"
	"github.com/hupe1980/reactmesh/runner"
	"github.com/hupe1980/reactmesh/session"
	"github.com/hupe1980/reactmesh/tool"
	"github.com/hupe1980/reactmesh/tool/toolset"
)

// Options configures the ReactMesh instance.
type Options struct {
	// MaxTurns bounds the completions of a single run.
	MaxTurns int
	Refresh  agent.RefreshMode

	// MaxConcurrentRuns limits simultaneous conversations.
	MaxConcurrentRuns int64

	// OnPartial enables streaming and receives text deltas.
	OnPartial func(text string)

	// Backends and capabilities (default to the built-in providers and toolset)
	Loader    provider.Loader
	Assembler agent.Assembler

	// SessionStore defaults to an in-memory store.
	SessionStore session.Store

	Clock func() time.Time

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ReactMesh is the high-level façade aggregating the agent loop and runner.
type ReactMesh struct {
	agent  *agent.Agent
	runner *runner.Runner
}

// New validates cfg and wires a ReactMesh. Any unset service is initialized
// with its default implementation.
func New(cfg config.Config, optFns ...func(o *Options)) (*ReactMesh, error) {
	opts := Options{
		MaxTurns:          core.DefaultMaxTurns,
		MaxConcurrentRuns: 10,
		SessionStore:      session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)

	if opts.Loader == nil {
		opts.Loader = provider.Default()
	}
	if opts.Assembler == nil {
		opts.Assembler = toolset.New(func(o *toolset.Options) { o.Logger = logger })
	}

	a, err := agent.New(cfg, func(o *agent.Options) {
		o.MaxTurns = opts.MaxTurns
		o.Refresh = opts.Refresh
		o.Logger = logger
		o.Loader = opts.Loader
		o.Assembler = opts.Assembler
		o.OnPartial = opts.OnPartial
		o.Clock = opts.Clock
	})
	if err != nil {
		return nil, err
	}

	r := runner.New(a, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.SessionStore = opts.SessionStore
		o.Logger = logger
	})

	return &ReactMesh{agent: a, runner: r}, nil
}

// Agent exposes the underlying loop.
func (m *ReactMesh) Agent() *agent.Agent { return m.agent }

// Runner exposes the conversation runner.
func (m *ReactMesh) Runner() *runner.Runner { return m.runner }

// Run executes the loop on msgs and returns the accumulated history.
func (m *ReactMesh) Run(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	return m.agent.Run(ctx, msgs)
}

// Ask runs a single question without session state and returns the final
// assistant message.
func (m *ReactMesh) Ask(ctx context.Context, question string) (core.Message, error) {
	out, err := m.agent.Run(ctx, []core.Message{core.NewHumanMessage(question)})
	if err != nil {
		return core.Message{}, err
	}
	return out[len(out)-1], nil
}

// Chat sends input to a session, continuing its stored transcript.
func (m *ReactMesh) Chat(ctx context.Context, sessionID, input string) (core.Message, error) {
	return m.runner.Chat(ctx, sessionID, input)
}

// Tools assembles the capability registry for the configuration.
func (m *ReactMesh) Tools(ctx context.Context) (*tool.Registry, error) {
	return m.agent.Tools(ctx)
}
