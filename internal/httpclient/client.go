package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/beevik/etree"
)

// DAV methods used by the client. Any other method token can be passed to Do.
const (
	MethodPropfind = "PROPFIND"
	MethodReport   = "REPORT"
)

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality
type HttpClientWrapper interface {
	// Do sends body with the given method and Depth header and returns the
	// root of the parsed response document.
	Do(ctx context.Context, method, url string, depth int, body string) (*etree.Element, error)
	DoPROPFIND(ctx context.Context, url string, depth int, body string) (*etree.Element, error)
	DoREPORT(ctx context.Context, url string, depth int, body string) (*etree.Element, error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper. Authentication is the
// job of the client's transport, see BasicAuthTransport.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}
