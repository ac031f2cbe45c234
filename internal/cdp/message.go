package cdp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned to waiters when the connection closes or fails
// before their response or event arrives.
var ErrClosed = errors.New("cdp connection closed")

// ErrNotStarted is returned when calling a client whose connection was never opened.
var ErrNotStarted = errors.New("cdp client not started")

// Request represents a CDP command request.
type Request struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Response represents a CDP command response.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`

	// decodeErr is set when the id could be read but the rest of the
	// message could not.
	decodeErr error
}

// Event represents a CDP event notification.
type Event struct {
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Error represents a CDP protocol error carried in a response.
// Data is whatever JSON value the browser attached, usually a string.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if data := e.DataString(); data != "" {
		return fmt.Sprintf("cdp error %d: %s (%s)", e.Code, e.Message, data)
	}
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// DataString returns Data unquoted when it is a JSON string, and as raw
// JSON otherwise.
func (e *Error) DataString() string {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return string(e.Data)
}

// ConnectionError reports a transport that failed to open.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to CDP endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// message is used internally to determine message type during parsing.
// ID is a pointer so that a present id of any value routes to the
// request table and is never treated as an event.
type message struct {
	ID        *int64          `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// parseMessage parses a raw CDP message and returns either a Response or Event.
// Returns (response, nil, nil) for command responses, including responses
// whose body failed to decode once their id is known.
// Returns (nil, event, nil) for events.
// Returns (nil, nil, error) for parse errors.
func parseMessage(data []byte) (*Response, *Event, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		err = fmt.Errorf("failed to parse CDP message: %w", err)
		// A response whose body does not decode still belongs to its caller.
		var idOnly struct {
			ID *int64 `json:"id"`
		}
		if json.Unmarshal(data, &idOnly) == nil && idOnly.ID != nil {
			return &Response{ID: *idOnly.ID, decodeErr: err}, nil, nil
		}
		return nil, nil, err
	}

	if msg.ID != nil {
		return &Response{
			ID:     *msg.ID,
			Result: msg.Result,
			Error:  msg.Error,
		}, nil, nil
	}

	if msg.Method != "" {
		return nil, &Event{
			Method:    msg.Method,
			Params:    msg.Params,
			SessionID: msg.SessionID,
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown CDP message format: %s", string(data))
}
