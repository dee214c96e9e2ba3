package davclient

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora-events/internal/xml"
)

type mockCall struct {
	Method string
	URL    string
	Depth  int
	Body   string
}

type mockResponse struct {
	body  string
	err   error
	delay time.Duration
}

// Mock types for testing
type mockHTTPClient struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	calls     []mockCall
}

func newMockHTTPClient() *mockHTTPClient {
	return &mockHTTPClient{responses: make(map[string]mockResponse)}
}

func (m *mockHTTPClient) on(method, url, body string) *mockHTTPClient {
	m.responses[method+" "+url] = mockResponse{body: body}
	return m
}

func (m *mockHTTPClient) fail(method, url string, err error) *mockHTTPClient {
	m.responses[method+" "+url] = mockResponse{err: err}
	return m
}

// failAfter makes method requests on url fail with err once delay has passed.
func (m *mockHTTPClient) failAfter(method, url string, delay time.Duration, err error) *mockHTTPClient {
	m.responses[method+" "+url] = mockResponse{err: err, delay: delay}
	return m
}

func (m *mockHTTPClient) count(method, url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method && c.URL == url {
			n++
		}
	}
	return n
}

func (m *mockHTTPClient) Do(ctx context.Context, method, url string, depth int, body string) (*etree.Element, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{Method: method, URL: url, Depth: depth, Body: body})
	resp, ok := m.responses[method+" "+url]
	m.mu.Unlock()

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &mockStatusError{url: url}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return xml.ParseTree([]byte(resp.body))
}

func (m *mockHTTPClient) DoPROPFIND(ctx context.Context, url string, depth int, body string) (*etree.Element, error) {
	return m.Do(ctx, "PROPFIND", url, depth, body)
}

func (m *mockHTTPClient) DoREPORT(ctx context.Context, url string, depth int, body string) (*etree.Element, error) {
	return m.Do(ctx, "REPORT", url, depth, body)
}

type mockStatusError struct {
	url string
}

func (e *mockStatusError) Error() string {
	return "unexpected status 404 for " + e.url
}

func newTestClient(root string, mock *mockHTTPClient) *DAVClient {
	u, err := url.Parse(root)
	if err != nil {
		panic(err)
	}
	return newClient(u, mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
