package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// ErrMissingCredentials is returned by BasicAuthTransport when the username
// or password is empty. No request is sent in that case.
var ErrMissingCredentials = errors.New("basic auth username and password are required")

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a copy of the request and delegates to the underlying
// transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" || t.Password == "" {
		return nil, ErrMissingCredentials
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	// The caller's request must stay untouched, so work on a clone.
	authReq := req.Clone(req.Context())

	debug := t.Logger.Enabled(req.Context(), slog.LevelDebug)
	if debug {
		t.Logger.Debug("outgoing request",
			"method", authReq.Method,
			"url", authReq.URL.String(),
			"headers", authReq.Header,
			"body", peekBody(&authReq.Body))
	}

	authReq.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(authReq)

	if err == nil && resp != nil && debug {
		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"headers", resp.Header,
			"body", peekBody(&resp.Body))
	}

	return resp, err
}

// peekBody reads *body for logging and replaces it with an equivalent reader.
func peekBody(body *io.ReadCloser) string {
	if *body == nil || *body == http.NoBody {
		return ""
	}
	data, err := io.ReadAll(*body)
	(*body).Close()
	*body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return string(data)
}
