package davclient

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoot      = "https://dav.example.com/"
	testPrincipal = "https://dav.example.com/principals/bob/"
	testHome      = "https://dav.example.com/calendars/bob/"
)

const principalResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/</d:href>
    <d:propstat>
      <d:prop>
        <d:current-user-principal><d:href>/principals/bob/</d:href></d:current-user-principal>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

const homeResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/principals/bob/</d:href>
    <d:propstat>
      <d:prop>
        <c:calendar-home-set>
          <d:href>/calendars/bob/</d:href>
        </c:calendar-home-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

const calendarListResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/bob/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/></d:resourcetype>
        <d:displayname></d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/bob/work/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <d:displayname>Work</d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

const emptyCalendarListResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/calendars/bob/</d:href>
    <d:propstat>
      <d:prop><d:displayname/></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

// discoveryMock answers the three discovery requests for bob.
func discoveryMock() *mockHTTPClient {
	return newMockHTTPClient().
		on("PROPFIND", testRoot, principalResponse).
		on("PROPFIND", testPrincipal, homeResponse).
		on("PROPFIND", testHome, calendarListResponse)
}

func TestDiscoverPrincipal(t *testing.T) {
	mock := discoveryMock()
	client := newTestClient(testRoot, mock)

	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testPrincipal, p.URL().String())
	assert.True(t, client.Principal().IsPresent())

	require.Len(t, mock.calls, 1)
	assert.Equal(t, 0, mock.calls[0].Depth)
	assert.Contains(t, mock.calls[0].Body, "current-user-principal")

	again, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, mock.count("PROPFIND", testRoot))
}

func TestDiscoverPrincipalKeepsRootPort(t *testing.T) {
	root := "http://localhost:5232/dav/"
	mock := newMockHTTPClient().on("PROPFIND", root, principalResponse)
	client := newTestClient(root, mock)

	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5232/principals/bob/", p.URL().String())
}

func TestDiscoverPrincipalErrors(t *testing.T) {
	tests := []struct {
		name     string
		mock     *mockHTTPClient
		wantType ErrorType
	}{
		{
			name: "missing current-user-principal",
			mock: newMockHTTPClient().on("PROPFIND", testRoot,
				`<d:multistatus xmlns:d="DAV:"><d:response><d:href>/</d:href></d:response></d:multistatus>`),
			wantType: ErrMalformedResponse,
		},
		{
			name: "principal without href",
			mock: newMockHTTPClient().on("PROPFIND", testRoot,
				`<d:multistatus xmlns:d="DAV:"><d:current-user-principal/></d:multistatus>`),
			wantType: ErrMalformedResponse,
		},
		{
			name:     "body is not XML",
			mock:     newMockHTTPClient().on("PROPFIND", testRoot, "Internal error, try again later"),
			wantType: ErrMalformedResponse,
		},
		{
			name:     "transport failure",
			mock:     newMockHTTPClient().fail("PROPFIND", testRoot, errors.New("connection refused")),
			wantType: ErrTransport,
		},
		{
			name:     "unknown resource",
			mock:     newMockHTTPClient(),
			wantType: ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(testRoot, tt.mock)
			_, err := client.DiscoverPrincipal(context.Background())
			require.Error(t, err)
			assert.True(t, IsErrorType(err, tt.wantType), "got %v", err)

			var davErr *Error
			require.ErrorAs(t, err, &davErr)
			assert.Equal(t, stepPrincipal, davErr.Step)
			assert.True(t, client.Principal().IsAbsent())
		})
	}
}

func TestDiscoverPrincipalServiceDiscovery(t *testing.T) {
	tests := []struct {
		name     string
		resolver *mockResolver
		mock     *mockHTTPClient
		want     string
	}{
		{
			name:     "well-known fallback",
			resolver: &mockResolver{},
			mock: newMockHTTPClient().
				on("PROPFIND", "https://dav.example.com/.well-known/caldav", principalResponse),
			want: "https://dav.example.com/principals/bob/",
		},
		{
			name: "SRV record with TXT path",
			resolver: &mockResolver{
				srvRecords: map[string][]*net.SRV{
					"_caldavs._tcp.dav.example.com": {{Target: "cal.example.net.", Port: 8443}},
				},
				txtRecords: map[string][]string{
					"_caldavs._tcp.dav.example.com": {"path=/caldav/"},
				},
			},
			mock: newMockHTTPClient().
				on("PROPFIND", "https://cal.example.net:8443/caldav/", principalResponse),
			want: "https://cal.example.net:8443/principals/bob/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(testRoot, tt.mock)
			client.serviceDiscovery = true
			client.resolver = tt.resolver

			p, err := client.DiscoverPrincipal(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.URL().String())
			assert.Equal(t, 1, tt.mock.count("PROPFIND", testRoot))
		})
	}
}

func TestDiscoverPrincipalServiceDiscoveryReportsFirstError(t *testing.T) {
	client := newTestClient(testRoot, newMockHTTPClient().
		on("PROPFIND", testRoot, "not xml at all"))
	client.serviceDiscovery = true
	client.resolver = &mockResolver{}

	_, err := client.DiscoverPrincipal(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrMalformedResponse))
}

func TestDiscoverCalendarHome(t *testing.T) {
	mock := discoveryMock()
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	assert.True(t, p.CalendarHome().IsAbsent())

	home, err := p.DiscoverCalendarHome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testHome, home.String())
	assert.Equal(t, testHome, p.CalendarHome().MustGet().String())

	_, err = p.DiscoverCalendarHome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.count("PROPFIND", testPrincipal))

	call := mock.calls[1]
	assert.Equal(t, 0, call.Depth)
	assert.Contains(t, call.Body, "calendar-home-set")
}

func TestDiscoverCalendarHomeMissing(t *testing.T) {
	mock := newMockHTTPClient().
		on("PROPFIND", testRoot, principalResponse).
		on("PROPFIND", testPrincipal, `<d:multistatus xmlns:d="DAV:"><d:response><d:href>/principals/bob/</d:href></d:response></d:multistatus>`)
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)

	_, err = p.DiscoverCalendarHome(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrMalformedResponse))
	assert.True(t, p.CalendarHome().IsAbsent())
}

func TestDiscoverCalendars(t *testing.T) {
	mock := discoveryMock()
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	assert.False(t, p.CalendarsDiscovered())

	calendars, err := p.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/calendars/bob/work/"}, calendars)
	assert.True(t, p.CalendarsDiscovered())
	assert.True(t, p.CalendarHome().IsPresent())

	call := mock.calls[len(mock.calls)-1]
	assert.Equal(t, testHome, call.URL)
	assert.Equal(t, 1, call.Depth)

	again, err := p.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, calendars, again)
	assert.Equal(t, 1, mock.count("PROPFIND", testHome))
}

func TestDiscoverCalendarsEmpty(t *testing.T) {
	mock := discoveryMock().on("PROPFIND", testHome, emptyCalendarListResponse)
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)

	calendars, err := p.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, calendars)
	assert.Empty(t, calendars)
	assert.NotNil(t, p.Calendars())
	assert.True(t, p.CalendarsDiscovered())

	_, err = p.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.count("PROPFIND", testHome))
}

func TestDiscoverCalendarsRetryAfterFailure(t *testing.T) {
	mock := discoveryMock().fail("PROPFIND", testHome, errors.New("timeout"))
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)

	_, err = p.DiscoverCalendars(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrTransport))
	assert.False(t, p.CalendarsDiscovered())
	assert.Empty(t, p.Calendars())

	mock.on("PROPFIND", testHome, calendarListResponse)
	calendars, err := p.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/calendars/bob/work/"}, calendars)
}

func TestDiscoverCalendarsMissingHref(t *testing.T) {
	mock := discoveryMock().on("PROPFIND", testHome,
		`<d:multistatus xmlns:d="DAV:"><d:response><d:propstat><d:prop><d:displayname>Work</d:displayname></d:prop></d:propstat></d:response></d:multistatus>`)
	client := newTestClient(testRoot, mock)
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)

	_, err = p.DiscoverCalendars(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrMalformedResponse))
	assert.False(t, p.CalendarsDiscovered())
}

func TestCalendarsReturnsCopy(t *testing.T) {
	client := newTestClient(testRoot, discoveryMock())
	p, err := client.DiscoverPrincipal(context.Background())
	require.NoError(t, err)
	_, err = p.DiscoverCalendars(context.Background())
	require.NoError(t, err)

	calendars := p.Calendars()
	calendars[0] = "/elsewhere/"
	assert.Equal(t, []string{"/calendars/bob/work/"}, p.Calendars())
}

func TestWithPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{
			name: "replaces path",
			base: "https://dav.example.com/",
			href: "/principals/bob/",
			want: "https://dav.example.com/principals/bob/",
		},
		{
			name: "keeps port",
			base: "http://localhost:5232/dav/",
			href: "/calendars/bob/",
			want: "http://localhost:5232/calendars/bob/",
		},
		{
			name: "keeps query and fragment",
			base: "https://dav.example.com/root?x=1#frag",
			href: "/calendars/bob/",
			want: "https://dav.example.com/calendars/bob/?x=1#frag",
		},
		{
			name: "absolute href contributes its path only",
			base: "https://dav.example.com/",
			href: "https://other.example.org:8443/calendars/bob/",
			want: "https://dav.example.com/calendars/bob/",
		},
		{
			name: "escaped characters survive",
			base: "https://dav.example.com/",
			href: "/calendars/bob/my%20cal/",
			want: "https://dav.example.com/calendars/bob/my%20cal/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			require.NoError(t, err)

			got := withPath(base, tt.href)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.base, base.String(), "base must not change")
		})
	}
}

// mockResolver implements a mock DNS resolver for testing
type mockResolver struct {
	srvRecords map[string][]*net.SRV
	txtRecords map[string][]string
}

func (r *mockResolver) LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error) {
	addrs, ok := r.srvRecords[name]
	if !ok {
		return "", nil, &net.DNSError{
			Err:        "no such host",
			Name:       name,
			IsNotFound: true,
		}
	}
	return "", addrs, nil
}

func (r *mockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, ok := r.txtRecords[name]
	if !ok {
		return nil, &net.DNSError{
			Err:        "no such host",
			Name:       name,
			IsNotFound: true,
		}
	}
	return records, nil
}
