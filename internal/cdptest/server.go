// Package cdptest provides a scripted DevTools protocol peer for tests.
//
// A Server speaks the protocol over a real WebSocket and serves the HTTP
// discovery endpoints, so clients are exercised end to end.
package cdptest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/grantcarthew/cdpsnap/internal/cdp"
)

// Request is a request as received by the server.
type Request struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Handler answers a request with a result, or with a protocol error.
type Handler func(req Request) (any, *cdp.Error)

// Server is a fake browser endpoint.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	handlers  map[string]Handler
	events    map[string][]cdp.Event
	requests  []Request
	conns     []*websocket.Conn
	discovery any
}

// NewServer starts a server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		events:   make(map[string][]cdp.Event),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", s.serveVersion)
	mux.HandleFunc("/json/list", s.serveList)
	mux.HandleFunc("/devtools/", s.serveWebSocket)
	s.srv = httptest.NewServer(mux)
	return s
}

// URL returns the browser-level protocol endpoint.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/devtools/browser/fake"
}

// DiscoveryURL returns the base URL of the HTTP discovery endpoints.
func (s *Server) DiscoveryURL() string {
	return s.srv.URL
}

// PageURL returns a page-level debugger URL for a target id.
func (s *Server) PageURL(targetID string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/devtools/page/" + targetID
}

// Handle sets the handler for a method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// HandleResult answers every request for method with result.
func (s *Server) HandleResult(method string, result any) {
	s.Handle(method, func(Request) (any, *cdp.Error) {
		return result, nil
	})
}

// EmitAfter queues events sent right after the response to method.
// A session-less event inherits the session of the triggering request.
func (s *Server) EmitAfter(method string, events ...cdp.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[method] = append(s.events[method], events...)
}

// SetDiscovery sets the body served from /json/list.
func (s *Server) SetDiscovery(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovery = v
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests for method were received.
func (s *Server) Count(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Close drops all connections and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	s.srv.Close()
}

func (s *Server) serveVersion(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"Browser":              "HeadlessChrome/120.0.0.0",
		"Protocol-Version":     "1.3",
		"webSocketDebuggerUrl": s.URL(),
	})
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.discovery
	s.mu.Unlock()
	if body == nil {
		body = []any{}
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		h := s.handlers[req.Method]
		events := s.events[req.Method]
		s.mu.Unlock()

		if err := conn.WriteJSON(respond(req, h)); err != nil {
			return
		}

		for _, evt := range events {
			if evt.SessionID == "" {
				evt.SessionID = req.SessionID
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

func respond(req Request, h Handler) map[string]any {
	resp := map[string]any{"id": req.ID}
	if h == nil {
		resp["error"] = &cdp.Error{Code: -32601, Message: fmt.Sprintf("'%s' wasn't found", req.Method)}
		return resp
	}

	result, cdpErr := h(req)
	if cdpErr != nil {
		resp["error"] = cdpErr
		return resp
	}
	if result == nil {
		result = struct{}{}
	}
	resp["result"] = result
	return resp
}

// HandlePage scripts a browser with one page that can be attached,
// navigated and captured. Individual methods can be overridden afterwards.
func (s *Server) HandlePage(targetID, sessionID string, png []byte) {
	s.HandleResult("Target.getTargets", map[string]any{
		"targetInfos": []any{
			map[string]any{"targetId": targetID, "type": "page", "title": "Blank", "url": "about:blank"},
			map[string]any{"targetId": "W-" + targetID, "type": "service_worker", "url": "https://example.com/sw.js"},
		},
	})
	s.HandleResult("Target.attachToTarget", map[string]any{"sessionId": sessionID})
	for _, domain := range []string{"Page", "DOM", "Runtime", "Accessibility"} {
		s.HandleResult(domain+".enable", nil)
	}
	s.HandleResult("Page.navigate", map[string]any{"frameId": "ROOT", "loaderId": "L1"})
	s.EmitAfter("Page.navigate", cdp.Event{Method: "Page.loadEventFired", Params: json.RawMessage(`{"timestamp":1}`)})
	s.HandleResult("Page.getLayoutMetrics", map[string]any{
		"cssContentSize": map[string]any{"x": 0, "y": 0, "width": 800, "height": 3000},
	})
	s.HandleResult("Page.captureScreenshot", map[string]any{"data": base64.StdEncoding.EncodeToString(png)})
	s.HandleResult("Page.printToPDF", map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))})
	s.HandleResult("DOMSnapshot.captureSnapshot", map[string]any{"documents": []any{}, "strings": []any{"html"}})
	s.HandleResult("DOM.getDocument", map[string]any{"root": map[string]any{"nodeId": 1}})
	s.HandleResult("DOM.getOuterHTML", map[string]any{"outerHTML": "<html><body><p>hi</p></body></html>"})
	s.HandleResult("Page.getFrameTree", map[string]any{
		"frameTree": map[string]any{
			"frame": map[string]any{"id": "ROOT", "url": "https://example.com/"},
			"childFrames": []any{
				map[string]any{"frame": map[string]any{"id": "CHILD1", "parentId": "ROOT"}},
				map[string]any{"frame": map[string]any{"id": "CHILD2", "parentId": "ROOT"}},
			},
		},
	})
	s.Handle("Accessibility.getFullAXTree", func(req Request) (any, *cdp.Error) {
		var params struct {
			FrameID string `json:"frameId"`
		}
		_ = json.Unmarshal(req.Params, &params)
		return map[string]any{
			"nodes": []any{
				map[string]any{"nodeId": params.FrameID + "-1", "role": map[string]any{"value": "RootWebArea"}},
			},
		}, nil
	})
}
