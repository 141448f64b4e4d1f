package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/tool"
)

// DiscovererOptions configure a Discoverer.
type DiscovererOptions struct {
	// Timeout bounds one discovery round; zero means no extra bound.
	Timeout time.Duration
	Logger  logging.Logger
}

// Discoverer lists the capabilities of a remote endpoint through a
// ClientHolder.
type Discoverer struct {
	holder *ClientHolder
	opts   DiscovererOptions
}

// NewDiscoverer creates a discoverer. A nil holder gets a fresh one.
func NewDiscoverer(holder *ClientHolder, optFns ...func(o *DiscovererOptions)) *Discoverer {
	opts := DiscovererOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if holder == nil {
		holder = NewClientHolder(nil)
	}

	return &Discoverer{holder: holder, opts: opts}
}

// Holder returns the client cache.
func (d *Discoverer) Holder() *ClientHolder { return d.holder }

// Discover performs one discovery round against endpoint and returns a proxy
// per listed capability in server order.
func (d *Discoverer) Discover(ctx context.Context, endpoint string) ([]tool.Tool, error) {
	client, err := d.holder.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("create discovery client: %w", err)
	}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]tool.Tool, 0, len(infos))
	for _, info := range infos {
		if info.Name == "" {
			continue
		}
		tools = append(tools, NewTool(client, info))
	}

	d.opts.Logger.Debug("remote.discovery.done", "endpoint", endpoint, "tools", len(tools))

	return tools, nil
}
