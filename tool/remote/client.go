// Package remote discovers and invokes capabilities hosted by a Model Context
// Protocol server. Clients are memoized per endpoint by a ClientHolder and
// reconnect on their own when the server drops the session.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/reactmesh/logging"
)

// Transport selects the MCP wire protocol.
type Transport string

const (
	// TransportAuto picks streamable HTTP for endpoints whose path ends in
	// "/mcp" and SSE otherwise.
	TransportAuto Transport = ""
	// TransportSSE is the GET event stream plus endpoint event protocol.
	TransportSSE Transport = "sse"
	// TransportStreamableHTTP posts every message to a single endpoint.
	TransportStreamableHTTP Transport = "streamable-http"
)

// Version is reported to servers in the client info.
const Version = "0.1.0"

// ClientOptions configure a Client.
type ClientOptions struct {
	Transport Transport
	// Headers are sent with every request (auth tokens, etc.).
	Headers map[string]string
	// ClientName is reported during initialization.
	ClientName string
	// MaxPages bounds tools/list pagination.
	MaxPages int
	Logger   logging.Logger
}

// Client is a lazily connected MCP client. It is safe for concurrent use.
type Client struct {
	endpoint string
	opts     ClientOptions

	// dialMu serializes connection attempts; mu guards the fields below.
	dialMu sync.Mutex
	mu     sync.RWMutex
	conn   *mcpclient.Client
	stop   context.CancelFunc
	server mcpgo.Implementation
}

// NewClient validates endpoint and creates a client. No connection is made
// until the first request.
func NewClient(endpoint string, optFns ...func(o *ClientOptions)) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid MCP endpoint %q", endpoint)
	}

	opts := ClientOptions{
		ClientName: "reactmesh",
		MaxPages:   50,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Transport == TransportAuto {
		opts.Transport = TransportSSE
		if strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/mcp") {
			opts.Transport = TransportStreamableHTTP
		}
	}

	return &Client{endpoint: endpoint, opts: opts}, nil
}

// Endpoint returns the server URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Transport returns the resolved wire protocol.
func (c *Client) Transport() Transport { return c.opts.Transport }

// ServerInfo returns the name and version the server reported during the
// last successful handshake.
func (c *Client) ServerInfo() mcpgo.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Connected reports whether a session is established.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// ListTools returns every tool the server lists, following pagination. A
// failure on an existing session drops it and retries once on a new one.
func (c *Client) ListTools(ctx context.Context) ([]mcpgo.Tool, error) {
	tools, err := c.listTools(ctx)
	if err != nil && ctx.Err() == nil && c.disconnect() {
		c.opts.Logger.Info("remote.session.reconnect", "endpoint", c.endpoint, "error", err.Error())
		return c.listTools(ctx)
	}
	return tools, err
}

func (c *Client) listTools(ctx context.Context) ([]mcpgo.Tool, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	var (
		tools  []mcpgo.Tool
		cursor mcpgo.Cursor
	)

	for page := 0; page < c.opts.MaxPages; page++ {
		req := mcpgo.ListToolsRequest{}
		req.Params.Cursor = cursor

		res, err := conn.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}

		tools = append(tools, res.Tools...)

		if res.NextCursor == "" {
			return tools, nil
		}
		cursor = res.NextCursor
	}

	return tools, nil
}

// CallTool invokes a remote tool. Calls are retried on a new session only
// when the server reports the old one as terminated, so a call never runs twice.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcpgo.CallToolResult, error) {
	res, err := c.callTool(ctx, name, args)
	if errors.Is(err, transport.ErrSessionTerminated) && c.disconnect() {
		c.opts.Logger.Info("remote.session.reconnect", "endpoint", c.endpoint, "error", err.Error())
		return c.callTool(ctx, name, args)
	}
	return res, err
}

func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (*mcpgo.CallToolResult, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	return conn.CallTool(ctx, req)
}

// Close tears down the current session, if any.
func (c *Client) Close() error {
	c.disconnect()
	return nil
}

func (c *Client) current() *mcpclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// disconnect drops the current session and reports whether there was one.
func (c *Client) disconnect() bool {
	c.mu.Lock()
	conn, stop := c.conn, c.stop
	c.conn, c.stop = nil, nil
	c.mu.Unlock()

	if conn == nil {
		return false
	}

	_ = conn.Close()
	stop()

	return true
}

// connect returns the current session or performs the handshake. Readers of
// the session state are not blocked while the handshake is in flight.
func (c *Client) connect(ctx context.Context) (*mcpclient.Client, error) {
	if conn := c.current(); conn != nil {
		return conn, nil
	}

	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	if conn := c.current(); conn != nil {
		return conn, nil
	}

	conn, err := c.newTransportClient()
	if err != nil {
		return nil, err
	}

	// The event stream outlives the request that opened it.
	life, stop := context.WithCancel(context.Background())

	started := make(chan error, 1)
	go func() { started <- conn.Start(life) }()

	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: %w", c.endpoint, err)
	}

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: c.opts.ClientName, Version: Version}

	res, err := conn.Initialize(ctx, req)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("initialize %s: %w", c.endpoint, err)
	}

	c.mu.Lock()
	c.conn, c.stop, c.server = conn, stop, res.ServerInfo
	c.mu.Unlock()

	c.opts.Logger.Debug("remote.session.open",
		"endpoint", c.endpoint,
		"transport", string(c.opts.Transport),
		"server", res.ServerInfo.Name,
		"protocol", res.ProtocolVersion,
	)

	return conn, nil
}

func (c *Client) newTransportClient() (*mcpclient.Client, error) {
	if c.opts.Transport == TransportStreamableHTTP {
		return mcpclient.NewStreamableHttpClient(c.endpoint, transport.WithHTTPHeaders(c.opts.Headers))
	}
	return mcpclient.NewSSEMCPClient(c.endpoint, transport.WithHeaders(c.opts.Headers))
}
