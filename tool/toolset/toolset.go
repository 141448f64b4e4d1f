// Package toolset assembles the capability registry for one loop invocation:
// local capabilities first, then whatever a remote discovery round yields.
package toolset

import (
	"context"
	"time"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/tool"
	"github.com/hupe1980/reactmesh/tool/remote"
)

// LocalFactory produces the local capabilities for a configuration.
type LocalFactory func(ctx context.Context, cfg config.Config) ([]tool.Tool, error)

// Discoverer lists remote capabilities at an endpoint.
type Discoverer interface {
	Discover(ctx context.Context, endpoint string) ([]tool.Tool, error)
}

// Options configure an Assembler.
type Options struct {
	// Locals defaults to NewLocals().Tools.
	Locals LocalFactory
	// Discoverer defaults to a remote.Discoverer with its own client holder.
	Discoverer Discoverer
	Logger     logging.Logger
}

// Assembler builds registries.
type Assembler struct {
	opts Options
}

// New creates an assembler.
func New(optFns ...func(o *Options)) *Assembler {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Locals == nil {
		opts.Locals = NewLocals().Tools
	}

	if opts.Discoverer == nil {
		opts.Discoverer = remote.NewDiscoverer(nil, func(o *remote.DiscovererOptions) { o.Logger = opts.Logger })
	}

	return &Assembler{opts: opts}
}

// Assemble returns the locals followed by the remotes discovered at
// cfg.DiscoveryURL. Discovery failures are logged and contribute nothing; a
// duplicate name across both sets is a configuration error.
func (a *Assembler) Assemble(ctx context.Context, cfg config.Config) (*tool.Registry, error) {
	locals, err := a.opts.Locals(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tools := append([]tool.Tool{}, locals...)

	if cfg.DiscoveryURL != "" {
		tools = append(tools, a.discover(ctx, cfg)...)
	}

	return tool.NewRegistry(tools...)
}

func (a *Assembler) discover(ctx context.Context, cfg config.Config) []tool.Tool {
	if cfg.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DiscoveryTimeout)
		defer cancel()
	}

	start := time.Now()

	remotes, err := a.opts.Discoverer.Discover(ctx, cfg.DiscoveryURL)
	if err != nil {
		a.opts.Logger.Warn("toolset.discovery.failed",
			"endpoint", cfg.DiscoveryURL,
			"duration", time.Since(start),
			"error", err.Error(),
		)
		return nil
	}

	a.opts.Logger.Info("toolset.discovery.done", "endpoint", cfg.DiscoveryURL, "tools", len(remotes))

	return remotes
}
