package remote

import "sync"

// Factory builds a client for an endpoint.
type Factory func(endpoint string) (*Client, error)

// ClientHolder memoizes discovery clients. A client is created on the first
// request for an endpoint and reused afterwards until Reset.
type ClientHolder struct {
	factory Factory

	mu      sync.Mutex
	clients map[string]*Client
	created int
}

// NewClientHolder creates a holder. A nil factory uses NewClient with
// default options.
func NewClientHolder(factory Factory) *ClientHolder {
	if factory == nil {
		factory = func(endpoint string) (*Client, error) { return NewClient(endpoint) }
	}
	return &ClientHolder{factory: factory, clients: map[string]*Client{}}
}

// Get returns the memoized client for endpoint, creating it if needed.
// Factory errors are not memoized. Construction does no I/O, so the lock
// is never held across a network call.
func (h *ClientHolder) Get(endpoint string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[endpoint]; ok {
		return c, nil
	}

	c, err := h.factory(endpoint)
	if err != nil {
		return nil, err
	}

	h.clients[endpoint] = c
	h.created++

	return c, nil
}

// Held reports whether a client for endpoint exists.
func (h *ClientHolder) Held(endpoint string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[endpoint]
	return ok
}

// Created returns how many clients the factory has produced.
func (h *ClientHolder) Created() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created
}

// Reset closes and drops every memoized client.
func (h *ClientHolder) Reset() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]*Client{}
	h.created = 0
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
}
