// Package davtest provides an in-process CalDAV server for tests. It answers
// a fixed set of (method, path) routes with canned multistatus documents and
// records every request it receives.
package davtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/cyp0633/caldora-events/internal/xml"
)

const (
	headerContentType = "Content-Type"
	headerDepth       = "Depth"

	mimeTypeXML = "application/xml; charset=utf-8"
)

// Request is a request as received by the server.
type Request struct {
	Method string
	Path   string
	Depth  string
	Body   string
}

// Server is a fake CalDAV server that requires HTTP basic authentication.
type Server struct {
	*httptest.Server

	username string
	password string

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a server accepting the given credentials. Callers must
// Close it.
func NewServer(username, password string) *Server {
	s := &Server{
		username: username,
		password: password,
		handlers: make(map[string]http.HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

func routeKey(method, path string) string {
	return method + " " + path
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Depth:  r.Header.Get(headerDepth),
		Body:   string(body),
	})
	handler, ok := s.handlers[routeKey(r.Method, r.URL.Path)]
	s.mu.Unlock()

	username, password, hasAuth := r.BasicAuth()
	if !hasAuth || username != s.username || password != s.password {
		w.Header().Set("WWW-Authenticate", `Basic realm="davtest"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	handler(w, r)
}

// Handle answers method requests on path with status and body.
func (s *Server) Handle(method, path string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[routeKey(method, path)] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, mimeTypeXML)
		w.WriteHeader(status)
		w.Write(body)
	}
}

// HandleMultistatus answers method requests on path with a 207 response.
func (s *Server) HandleMultistatus(method, path string, m *xml.MultistatusResponse) {
	s.Handle(method, path, http.StatusMultiStatus, m.Bytes())
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many method requests were received on path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// RootURL returns the server root with a trailing slash.
func (s *Server) RootURL() string {
	return fmt.Sprintf("%s/", s.URL)
}
