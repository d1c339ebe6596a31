package ledger

import (
	"context"
	"fmt"
	"sync"

	"hbar-desk/go-client/pkg/models"
)

// Handle is one authenticated connection to the network. A handle
// borrows the session's credentials for signing but never persists
// them.
type Handle struct {
	mu     sync.Mutex
	gw     Gateway
	op     Operator
	closed bool
}

func (h *Handle) Operator() Operator {
	return h.op
}

func (h *Handle) Gateway() (Gateway, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	return h.gw, nil
}

// Close releases the handle. Safe to call multiple times.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// Client owns at most one live handle. Opening a new session closes
// any prior handle first so authenticated connections never leak.
type Client struct {
	mu     sync.Mutex
	gw     Gateway
	handle *Handle
}

func NewClient(gw Gateway) *Client {
	return &Client{gw: gw}
}

// Open authenticates the session against the network with a
// lightweight balance probe and returns the live handle. A malformed
// or rejected signing key yields ErrAuthentication.
func (c *Client) Open(ctx context.Context, session models.Session) (*Handle, error) {
	if !ValidEntityID(session.AccountID) {
		return nil, fmt.Errorf("%w: malformed account id", ErrAuthentication)
	}
	if !ValidSigningKey(session.SigningKey) {
		return nil, fmt.Errorf("%w: malformed signing key", ErrAuthentication)
	}

	op := Operator{AccountID: session.AccountID, SigningKey: session.SigningKey}
	if _, err := c.gw.AccountBalance(ctx, op, session.AccountID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Close()
	}
	c.handle = &Handle{gw: c.gw, op: op}
	return c.handle, nil
}

// Close tears down the live handle, if any. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
}

// Handle returns the live handle when one is open.
func (c *Client) Handle() (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return nil, false
	}
	return c.handle, true
}
