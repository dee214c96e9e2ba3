package davclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cyp0633/caldora-events/internal/xml"
	"github.com/samber/mo"
)

// Principal is the authenticated user's principal resource. Its URL is
// fixed at discovery; the calendar home and calendar list are filled in by
// DiscoverCalendarHome and DiscoverCalendars and never change afterwards.
// A Principal is not safe for concurrent use.
type Principal struct {
	client *DAVClient
	url    *url.URL

	calendarHome mo.Option[*url.URL]
	calendars    []string
	enumerated   bool
}

func newPrincipal(client *DAVClient, u *url.URL) *Principal {
	return &Principal{
		client:       client,
		url:          u,
		calendarHome: mo.None[*url.URL](),
		calendars:    make([]string, 0),
	}
}

// URL returns a copy of the principal URL.
func (p *Principal) URL() *url.URL {
	return cloneURL(p.url)
}

// CalendarHome returns the calendar home URL once it has been discovered.
func (p *Principal) CalendarHome() mo.Option[*url.URL] {
	if home, ok := p.calendarHome.Get(); ok {
		return mo.Some(cloneURL(home))
	}
	return mo.None[*url.URL]()
}

// Calendars returns a copy of the calendar paths found so far, in the order
// the server listed them.
func (p *Principal) Calendars() []string {
	return append(make([]string, 0, len(p.calendars)), p.calendars...)
}

// CalendarsDiscovered reports whether calendar enumeration has completed,
// including the case where the server listed no calendars.
func (p *Principal) CalendarsDiscovered() bool {
	return p.enumerated
}

// DiscoverPrincipal resolves the current user principal from the server
// root. Once resolved, later calls return the same principal without a
// request.
func (c *DAVClient) DiscoverPrincipal(ctx context.Context) (*Principal, error) {
	if p, ok := c.principal.Get(); ok {
		return p, nil
	}

	locations := []*url.URL{c.root}
	if c.serviceDiscovery {
		locations = append(locations, c.bootstrapLocations(ctx)...)
	}

	var firstErr error
	for _, location := range locations {
		href, err := c.findPrincipalHref(ctx, location)
		if err != nil {
			c.logger.Debug("no principal at location", "url", location.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p := newPrincipal(c, withPath(location, href))
		c.principal = mo.Some(p)
		c.logger.Debug("discovered principal", "url", p.url.String())
		return p, nil
	}

	return nil, firstErr
}

func (c *DAVClient) findPrincipalHref(ctx context.Context, location *url.URL) (string, error) {
	root, err := c.http.DoPROPFIND(ctx, location.String(), 0, xml.PrincipalQuery())
	if err != nil {
		return "", requestError(stepPrincipal, err)
	}

	principal, ok := xml.FindFirst(root, xml.TagCurrentUserPrincipal).Get()
	if !ok {
		return "", missingElement(stepPrincipal, xml.TagCurrentUserPrincipal)
	}
	href := xml.ChildText(principal, xml.TagHref).OrEmpty()
	if href == "" {
		return "", missingElement(stepPrincipal, xml.TagHref)
	}
	return href, nil
}

// bootstrapLocations lists the RFC 6764 locations tried after the server
// root, in order: SRV targets (with the TXT path when present), then
// /.well-known/caldav, then the host root.
func (c *DAVClient) bootstrapLocations(ctx context.Context) []*url.URL {
	var locations []*url.URL

	for _, prefix := range []string{"_caldavs._tcp.", "_caldav._tcp."} {
		host := prefix + c.root.Hostname()
		_, addrs, err := c.resolver.LookupSRV(ctx, "", "", host)
		if err != nil {
			continue
		}

		path := "/"
		txts, _ := c.resolver.LookupTXT(ctx, host)
		for _, txt := range txts {
			if strings.HasPrefix(strings.ToLower(txt), "path=") && len(txt) > len("path=") {
				path = txt[len("path="):]
				break
			}
		}

		scheme := "http"
		if prefix == "_caldavs._tcp." {
			scheme = "https"
		}
		for _, addr := range addrs {
			target := strings.TrimSuffix(addr.Target, ".")
			if target == "" {
				continue
			}
			locations = append(locations, &url.URL{
				Scheme: scheme,
				Host:   fmt.Sprintf("%s:%d", target, addr.Port),
				Path:   path,
			})
		}
	}

	locations = append(locations,
		&url.URL{Scheme: c.root.Scheme, Host: c.root.Host, Path: "/.well-known/caldav"},
	)
	if c.root.Path != "/" && c.root.Path != "" {
		locations = append(locations, &url.URL{Scheme: c.root.Scheme, Host: c.root.Host, Path: "/"})
	}
	return locations
}

// DiscoverCalendarHome resolves the principal's calendar-home-set. The
// result is memoized: later calls return it without a request.
func (p *Principal) DiscoverCalendarHome(ctx context.Context) (*url.URL, error) {
	if home, ok := p.calendarHome.Get(); ok {
		return cloneURL(home), nil
	}

	root, err := p.client.http.DoPROPFIND(ctx, p.url.String(), 0, xml.CalendarHomeQuery())
	if err != nil {
		return nil, requestError(stepCalendarHome, err)
	}

	homeSet, ok := xml.FindFirst(root, xml.TagCalendarHomeSet).Get()
	if !ok {
		return nil, missingElement(stepCalendarHome, xml.TagCalendarHomeSet)
	}
	href := xml.ChildText(homeSet, xml.TagHref).OrEmpty()
	if href == "" {
		return nil, missingElement(stepCalendarHome, xml.TagHref)
	}

	home := withPath(p.url, href)
	p.calendarHome = mo.Some(home)
	p.client.logger.Debug("discovered calendar home", "url", home.String())
	return cloneURL(home), nil
}

// DiscoverCalendars lists the calendar collections in the calendar home,
// discovering the home first if needed. Members without a display name,
// such as the home's own entry, are skipped. Enumeration runs once; a
// failed attempt leaves the principal unchanged so it can be retried.
func (p *Principal) DiscoverCalendars(ctx context.Context) ([]string, error) {
	if p.enumerated {
		return p.Calendars(), nil
	}

	home, err := p.DiscoverCalendarHome(ctx)
	if err != nil {
		return nil, err
	}

	root, err := p.client.http.DoPROPFIND(ctx, home.String(), 1, xml.CalendarListQuery())
	if err != nil {
		return nil, requestError(stepCalendars, err)
	}

	found := make([]string, 0)
	for _, response := range xml.FindAll(root, xml.TagResponse) {
		if xml.ChildText(response, xml.TagDisplayname).OrEmpty() == "" {
			continue
		}
		href := xml.ChildText(response, xml.TagHref).OrEmpty()
		if href == "" {
			return nil, missingElement(stepCalendars, xml.TagHref)
		}
		found = append(found, href)
	}

	p.calendars = append(p.calendars, found...)
	p.enumerated = true
	p.client.logger.Debug("discovered calendars",
		"home", home.String(),
		"count", len(found))
	return p.Calendars(), nil
}

// withPath returns a copy of base whose path is href. Scheme, host, port,
// query and fragment are kept. An absolute href contributes only its path.
func withPath(base *url.URL, href string) *url.URL {
	u := cloneURL(base)
	if ref, err := url.Parse(href); err == nil && ref.IsAbs() {
		href = ref.EscapedPath()
	}

	path, err := url.PathUnescape(href)
	if err != nil {
		u.Path, u.RawPath = href, ""
		return u
	}
	u.Path = path
	u.RawPath = ""
	if path != href {
		u.RawPath = href
	}
	return u
}
