package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora-events/internal/xml"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// DoPROPFIND performs a PROPFIND request
func (c *httpClientWrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, body string) (*etree.Element, error) {
	return c.Do(ctx, MethodPropfind, urlStr, depth, body)
}

// DoREPORT executes a CalDAV REPORT request
func (c *httpClientWrapper) DoREPORT(ctx context.Context, urlStr string, depth int, body string) (*etree.Element, error) {
	return c.Do(ctx, MethodReport, urlStr, depth, body)
}

// Do sends a DAV request and parses the response body into an element tree.
// Parse failures wrap xml.ErrMalformedXML.
func (c *httpClientWrapper) Do(ctx context.Context, method, urlStr string, depth int, body string) (*etree.Element, error) {
	c.logger.Debug("starting DAV request",
		"method", method,
		"url", urlStr,
		"depth", depth)

	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, fmt.Errorf("failed to resolve URL %q: %w", urlStr, err)
	}
	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Depth", strconv.Itoa(depth))
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "method", method, "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected response status",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return nil, &StatusError{
			Method:     method,
			URL:        resolvedURL.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	root, err := xml.ParseTree(data)
	if err != nil {
		c.logger.Debug("failed to parse XML response", "method", method, "error", err)
		return nil, fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	c.logger.Debug("DAV request complete",
		"method", method,
		"root", root.Tag,
		"bytes", len(data))
	return root, nil
}
