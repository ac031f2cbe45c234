package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

// Client is a CDP protocol client.
//
// A Client owns exactly one connection. A single read loop dispatches every
// inbound message: responses go to the pending request with the same id,
// events go to the expectation registered for their method and session.
// Anything else is dropped.
type Client struct {
	endpoint string
	dial     Dialer
	logf     func(format string, args ...any)

	startOnce sync.Once
	startErr  error
	started   atomic.Bool

	conn    Conn
	writeMu sync.Mutex

	// mu guards nextID, both correlation tables and tablesClosed.
	mu           sync.Mutex
	nextID       int64
	pending      map[int64]chan *Response
	expectations map[eventKey]*EventFuture
	tablesClosed bool

	// closing is set once by Close; closed once the client stops serving
	// waiters, whether through Close or a failed read.
	closing      atomic.Bool
	closed       atomic.Bool
	closedCh     chan struct{}
	shutdownOnce sync.Once
	closeErr     error
	closeMu      sync.Mutex

	// done signals that the read loop has exited
	done chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the WebSocket dialer used by Start.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dial = d
	}
}

// WithLogger sets a printf-style logger for connection and dispatch diagnostics.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// New creates a client for the given endpoint. No connection is made until Start.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		dial:         DialWebSocket,
		pending:      make(map[int64]chan *Response),
		expectations: make(map[eventKey]*EventFuture),
		closedCh:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a CDP endpoint and returns a started client.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	c := New(endpoint, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start opens the connection and installs the read loop. It returns once the
// connection is open, or a *ConnectionError if it could not be opened.
// Only the first call does any work; later calls return the same result.
func (c *Client) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		conn, err := c.dial(ctx, c.endpoint)
		if err != nil {
			c.startErr = &ConnectionError{Endpoint: c.endpoint, Err: err}
			return
		}
		c.conn = conn
		c.started.Store(true)
		go c.readLoop()
		c.debugf("connected to %s", c.endpoint)
	})
	return c.startErr
}

// Endpoint returns the endpoint the client connects to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call sends a CDP command and waits for the correlated response.
//
// The command is written exactly once. There is no built-in timeout: the call
// returns when the response arrives, ctx is done, or the connection closes.
// A response carrying an error object is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params any, sessionID string) (json.RawMessage, error) {
	if !c.started.Load() {
		return nil, ErrNotStarted
	}
	if c.closed.Load() {
		return nil, c.closedError()
	}

	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		rawParams = data
	}

	respCh := make(chan *Response, 1)
	c.mu.Lock()
	if c.tablesClosed {
		c.mu.Unlock()
		return nil, c.closedError()
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = respCh
	c.mu.Unlock()
	defer c.forget(id)

	req := Request{
		ID:        id,
		Method:    method,
		SessionID: sessionID,
	}
	if rawParams != nil {
		req.Params = rawParams
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.writeMu.Lock()
	err = c.conn.Write(ctx, websocket.MessageText, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case resp := <-respCh:
		return responseResult(method, resp)
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.closedCh:
		// The response may have landed just before the close.
		select {
		case resp := <-respCh:
			return responseResult(method, resp)
		default:
		}
		return nil, c.closedError()
	}
}

func responseResult(method string, resp *Response) (json.RawMessage, error) {
	if resp.decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", method, resp.decodeErr)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Call sends a command and decodes its result into T. The client performs no
// schema checking; T is whatever shape the caller expects.
func Call[T any](ctx context.Context, c *Client, method string, params any, sessionID string) (T, error) {
	var out T
	raw, err := c.Call(ctx, method, params, sessionID)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return out, nil
}

// Pending reports the number of outstanding requests and expectations.
func (c *Client) Pending() (requests, expectations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending), len(c.expectations)
}

// Close closes the client connection and stops the read loop.
// Outstanding calls and expectations fail with ErrClosed. The transport is
// released on the first call even if the peer already went away.
func (c *Client) Close() error {
	c.startOnce.Do(func() {
		c.startErr = ErrClosed
	})
	if c.closing.Swap(true) {
		return nil // Already closed
	}

	c.shutdown(nil)

	if !c.started.Load() {
		return nil
	}

	err := c.conn.Close(websocket.StatusNormalClosure, "client closing")

	// Wait for read loop to exit
	<-c.done

	// Closing a transport that already failed reports that failure again.
	if c.Err() != nil {
		return nil
	}
	return err
}

// shutdown fails all waiters exactly once. err is the read error that ended
// the connection, or nil when Close came first.
func (c *Client) shutdown(err error) {
	c.shutdownOnce.Do(func() {
		if err != nil {
			c.closeMu.Lock()
			c.closeErr = err
			c.closeMu.Unlock()
		}

		c.mu.Lock()
		c.tablesClosed = true
		clear(c.expectations)
		c.mu.Unlock()

		c.closed.Store(true)
		close(c.closedCh)
	})
}

// Err returns any error that caused the client to close.
func (c *Client) Err() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closeErr
}

func (c *Client) closedError() error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return ErrClosed
}

// readLoop reads messages from the connection and dispatches them.
func (c *Client) readLoop() {
	defer close(c.done)

	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !c.closed.Load() {
				c.debugf("connection lost: %v", err)
			}
			c.shutdown(err)
			return
		}

		resp, evt, err := parseMessage(data)
		if err != nil {
			c.debugf("skipping malformed message: %v", err)
			continue
		}

		if resp != nil {
			c.dispatchResponse(resp)
		} else {
			c.dispatchEvent(evt)
		}
	}
}

// dispatchResponse hands a response to the waiting caller and removes its
// table entry. A second response with the same id finds no entry and is dropped.
func (c *Client) dispatchResponse(resp *Response) {
	c.mu.Lock()
	respCh, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		c.debugf("dropping response for unknown id %d", resp.ID)
		return
	}
	respCh <- resp
}

// dispatchEvent resolves the expectation registered for the event's method
// and session, if any.
func (c *Client) dispatchEvent(evt *Event) {
	key := eventKey{method: evt.Method, sessionID: evt.SessionID}

	c.mu.Lock()
	f, ok := c.expectations[key]
	delete(c.expectations, key)
	c.mu.Unlock()

	if !ok {
		return
	}
	c.debugf("event %s resolved expectation", key)
	f.resolve(*evt)
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) debugf(format string, args ...any) {
	if c.logf != nil {
		c.logf("cdp: "+format, args...)
	}
}

// IsRemoteError reports whether err carries a protocol error object.
func IsRemoteError(err error) bool {
	var cdpErr *Error
	return errors.As(err, &cdpErr)
}
