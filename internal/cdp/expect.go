package cdp

import (
	"context"
	"fmt"
)

// eventKey identifies an expectation. An empty sessionID matches
// connection-global events only.
type eventKey struct {
	method    string
	sessionID string
}

func (k eventKey) String() string {
	if k.sessionID == "" {
		return k.method
	}
	return k.method + "/" + k.sessionID
}

// EventFuture is a one-shot wait for the next event matching a method and
// session. It resolves at most once.
type EventFuture struct {
	Method    string
	SessionID string

	client *Client
	done   chan struct{}
	evt    Event
}

// Expect registers an expectation for the next event with the given method
// and session. It must be called before the action that triggers the event:
// events that arrive with no registered expectation are dropped.
//
// Registering a second expectation for the same method and session replaces
// the first. The replaced future no longer receives events and only returns
// when its context ends or the client closes.
func (c *Client) Expect(method, sessionID string) *EventFuture {
	f := &EventFuture{
		Method:    method,
		SessionID: sessionID,
		client:    c,
		done:      make(chan struct{}),
	}
	key := eventKey{method: method, sessionID: sessionID}
	c.mu.Lock()
	if c.tablesClosed {
		c.mu.Unlock()
		return f
	}
	if _, ok := c.expectations[key]; ok {
		c.debugf("expectation %s replaced", key)
	}
	c.expectations[key] = f
	c.mu.Unlock()
	return f
}

// Done is closed once the expected event has arrived.
func (f *EventFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the event arrives, ctx is done, or the client closes.
// A cancelled wait withdraws the expectation.
func (f *EventFuture) Wait(ctx context.Context) (Event, error) {
	select {
	case <-f.done:
		return f.evt, nil
	case <-ctx.Done():
		f.Cancel()
		// Resolution may have raced the cancellation.
		select {
		case <-f.done:
			return f.evt, nil
		default:
		}
		return Event{}, fmt.Errorf("waiting for %s: %w", f.Method, ctx.Err())
	case <-f.client.closedCh:
		select {
		case <-f.done:
			return f.evt, nil
		default:
		}
		return Event{}, f.client.closedError()
	}
}

// resolve is called by the read loop after the future has been removed from
// the table, so it runs at most once.
func (f *EventFuture) resolve(evt Event) {
	f.evt = evt
	close(f.done)
}

// Cancel withdraws the expectation if it is still registered.
func (f *EventFuture) Cancel() {
	key := eventKey{method: f.Method, sessionID: f.SessionID}
	c := f.client
	c.mu.Lock()
	if c.expectations[key] == f {
		delete(c.expectations, key)
	}
	c.mu.Unlock()
}
