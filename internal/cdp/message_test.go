package cdp

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMessage_Response(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantID     int64
		wantResult string
	}{
		{
			name:       "successful response",
			input:      `{"id":1,"result":{"frameId":"ABC123"}}`,
			wantID:     1,
			wantResult: `{"frameId":"ABC123"}`,
		},
		{
			name:       "response with null result",
			input:      `{"id":42,"result":null}`,
			wantID:     42,
			wantResult: `null`,
		},
		{
			name:       "zero id is still a response",
			input:      `{"id":0,"result":{}}`,
			wantID:     0,
			wantResult: `{}`,
		},
		{
			name:       "id with method routes as response",
			input:      `{"id":7,"method":"Page.loadEventFired","result":{}}`,
			wantID:     7,
			wantResult: `{}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, evt, err := parseMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if evt != nil {
				t.Errorf("expected event to be nil, got %+v", evt)
			}
			if resp == nil {
				t.Fatal("expected response, got nil")
			}
			if resp.ID != tt.wantID {
				t.Errorf("expected ID %d, got %d", tt.wantID, resp.ID)
			}
			if string(resp.Result) != tt.wantResult {
				t.Errorf("expected result %s, got %s", tt.wantResult, string(resp.Result))
			}
		})
	}
}

func TestParseMessage_ResponseWithError(t *testing.T) {
	t.Parallel()

	input := `{"id":3,"error":{"code":-32601,"message":"'Foo.bar' wasn't found","data":"Foo.bar"}}`

	resp, _, err := parseMessage([]byte(input))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if resp == nil || resp.Error == nil {
		t.Fatalf("expected response with error, got %+v", resp)
	}
	if resp.Error.Code != -32601 {
		t.Errorf("expected error code -32601, got %d", resp.Error.Code)
	}
	if resp.Error.DataString() != "Foo.bar" {
		t.Errorf("expected data Foo.bar, got %s", resp.Error.Data)
	}
}

func TestParseMessage_ErrorDataAnyJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		wantData string
	}{
		{"object", `{"field":"expression"}`, `{"field":"expression"}`},
		{"number", `42`, `42`},
		{"array", `["a","b"]`, `["a","b"]`},
		{"string", `"Foo.bar"`, `Foo.bar`},
		{"null", `null`, ``},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input := `{"id":4,"error":{"code":-32602,"message":"Invalid parameters","data":` + tt.data + `}}`
			resp, evt, err := parseMessage([]byte(input))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if evt != nil || resp == nil || resp.Error == nil {
				t.Fatalf("expected error response, got resp=%+v evt=%+v", resp, evt)
			}
			if got := resp.Error.DataString(); got != tt.wantData {
				t.Errorf("expected data %q, got %q", tt.wantData, got)
			}
		})
	}
}

func TestParseMessage_UndecodableResponseKeepsID(t *testing.T) {
	t.Parallel()

	// code must be a number; the id is still readable.
	input := `{"id":9,"error":{"code":"oops","message":"bad"}}`

	resp, evt, err := parseMessage([]byte(input))
	if err != nil {
		t.Fatalf("expected response with decode error, got %v", err)
	}
	if evt != nil || resp == nil {
		t.Fatalf("expected response, got resp=%+v evt=%+v", resp, evt)
	}
	if resp.ID != 9 {
		t.Errorf("expected id 9, got %d", resp.ID)
	}
	if resp.decodeErr == nil {
		t.Error("expected decode error to be recorded")
	}
}

func TestParseMessage_Event(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantMethod  string
		wantSession string
		wantParams  string
	}{
		{
			name:       "global event",
			input:      `{"method":"Target.targetCreated","params":{"targetInfo":{}}}`,
			wantMethod: "Target.targetCreated",
			wantParams: `{"targetInfo":{}}`,
		},
		{
			name:        "session event",
			input:       `{"method":"Page.loadEventFired","params":{"timestamp":123.456},"sessionId":"S1"}`,
			wantMethod:  "Page.loadEventFired",
			wantSession: "S1",
			wantParams:  `{"timestamp":123.456}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, evt, err := parseMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if resp != nil {
				t.Errorf("expected response to be nil, got %+v", resp)
			}
			if evt == nil {
				t.Fatal("expected event, got nil")
			}
			if evt.Method != tt.wantMethod {
				t.Errorf("expected method %s, got %s", tt.wantMethod, evt.Method)
			}
			if evt.SessionID != tt.wantSession {
				t.Errorf("expected session %q, got %q", tt.wantSession, evt.SessionID)
			}
			if string(evt.Params) != tt.wantParams {
				t.Errorf("expected params %s, got %s", tt.wantParams, string(evt.Params))
			}
		})
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`not json`,
		`{`,
		`{"id":}`,
		``,
		`{"foo":"bar"}`,
	}

	for _, input := range inputs {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			if _, _, err := parseMessage([]byte(input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      Error
		expected string
	}{
		{
			name:     "error without data",
			err:      Error{Code: -32000, Message: "x"},
			expected: "cdp error -32000: x",
		},
		{
			name:     "error with data",
			err:      Error{Code: -32602, Message: "Invalid params", Data: json.RawMessage(`"missing 'url'"`)},
			expected: "cdp error -32602: Invalid params (missing 'url')",
		},
		{
			name:     "error with object data",
			err:      Error{Code: -32602, Message: "Invalid parameters", Data: json.RawMessage(`{"field":"expression"}`)},
			expected: `cdp error -32602: Invalid parameters ({"field":"expression"})`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestConnectionError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := error(&ConnectionError{Endpoint: "ws://localhost:9222", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if got := err.Error(); got != "failed to connect to CDP endpoint ws://localhost:9222: dial tcp: refused" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRequest_Marshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{
			name:     "request without params",
			req:      Request{ID: 1, Method: "Page.enable"},
			expected: `{"id":1,"method":"Page.enable"}`,
		},
		{
			name:     "request with session",
			req:      Request{ID: 2, Method: "Page.navigate", Params: map[string]string{"url": "https://example.com"}, SessionID: "S"},
			expected: `{"id":2,"method":"Page.navigate","params":{"url":"https://example.com"},"sessionId":"S"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("failed to marshal: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(data))
			}
		})
	}
}

func FuzzParseMessage(f *testing.F) {
	f.Add([]byte(`{"id":1,"result":{}}`))
	f.Add([]byte(`{"id":1,"error":{"code":-1,"message":"error"}}`))
	f.Add([]byte(`{"method":"Page.loadEventFired","params":{},"sessionId":"S"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		resp, evt, err := parseMessage(data)
		if err == nil && (resp == nil) == (evt == nil) {
			t.Fatalf("exactly one of response or event expected for %q", data)
		}
	})
}
