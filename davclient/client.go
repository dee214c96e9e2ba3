package davclient

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/caldora-events/internal/httpclient"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/mo"
)

// DefaultTimeout bounds every request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DNSResolver interface for mocking DNS lookups in tests
type DNSResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Config holds everything a client session needs.
type Config struct {
	// URL is the DAV entry point, e.g. https://dav.example.com/.
	URL      string
	Username string
	Password string

	// Timeout applies to each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Concurrency is the number of calendars queried at once by the event
	// query. Values below 2 query calendars one after another.
	Concurrency int
	// ServiceDiscovery enables RFC 6764 lookups (SRV, TXT, /.well-known)
	// when the server root does not report a principal.
	ServiceDiscovery bool

	Resolver   DNSResolver
	Client     *http.Client
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Concurrency: 1,
		Resolver:    &net.Resolver{},
	}
}

// DAVClient is a read-only CalDAV session against one server root. It is
// not safe for concurrent use.
type DAVClient struct {
	root             *url.URL
	http             httpclient.HttpClientWrapper
	logger           *slog.Logger
	resolver         DNSResolver
	serviceDiscovery bool
	concurrency      int

	principal mo.Option[*Principal]
}

// New validates cfg and builds a client. No request is sent.
func New(cfg *Config) (*DAVClient, error) {
	if cfg == nil {
		return nil, configError("config is required")
	}

	root, err := parseServerURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, configError("username and password are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("session", uuid.NewString())

	// Work on a copy so the caller's client is left alone.
	client := &http.Client{}
	if cfg.Client != nil {
		*client = *cfg.Client
	}
	if client.Timeout == 0 {
		client.Timeout = cfg.Timeout
		if client.Timeout == 0 {
			client.Timeout = DefaultTimeout
		}
	}

	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Registerer != nil {
		metrics, err := httpclient.NewMetricsTransport(transport, cfg.Registerer)
		if err != nil {
			return nil, configError("failed to register metrics: %v", err)
		}
		transport = metrics
	}
	client.Transport = httpclient.NewBasicAuthTransport(cfg.Username, cfg.Password, transport, logger)

	wrapper, err := httpclient.NewHttpClientWrapper(client, *root, logger)
	if err != nil {
		return nil, configError("failed to create HTTP client wrapper: %v", err)
	}

	c := newClient(root, wrapper, logger)
	c.serviceDiscovery = cfg.ServiceDiscovery
	c.concurrency = cfg.Concurrency
	if cfg.Resolver != nil {
		c.resolver = cfg.Resolver
	}
	return c, nil
}

func newClient(root *url.URL, wrapper httpclient.HttpClientWrapper, logger *slog.Logger) *DAVClient {
	return &DAVClient{
		root:        root,
		http:        wrapper,
		logger:      logger,
		resolver:    &net.Resolver{},
		concurrency: 1,
		principal:   mo.None[*Principal](),
	}
}

// parseServerURL accepts absolute http and https URLs only.
func parseServerURL(location string) (*url.URL, error) {
	if location == "" {
		return nil, configError("invalid URL: empty")
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, configError("invalid URL %q: %v", location, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, configError("invalid URL %q: want an absolute http or https URL", location)
	}
	return u, nil
}

// ServerURL returns a copy of the server root URL.
func (c *DAVClient) ServerURL() *url.URL {
	return cloneURL(c.root)
}

// Principal returns the resolved principal, if DiscoverPrincipal succeeded.
func (c *DAVClient) Principal() mo.Option[*Principal] {
	return c.principal
}

// FetchEvents runs the whole chain: principal, calendar home, calendar
// list, then the event query over every calendar. start and end use the
// UTC basic format, e.g. 20201102T000000Z.
func (c *DAVClient) FetchEvents(ctx context.Context, start, end string) ([]string, error) {
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}
	p, err := c.DiscoverPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := p.DiscoverCalendars(ctx); err != nil {
		return nil, err
	}
	return p.Events(ctx, start, end)
}

func cloneURL(u *url.URL) *url.URL {
	clone := *u
	return &clone
}
