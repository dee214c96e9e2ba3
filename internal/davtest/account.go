package davtest

import (
	"fmt"

	"github.com/cyp0633/caldora-events/internal/xml"
)

// Calendar is a calendar collection and the events its REPORT returns. The
// server does not evaluate the time-range filter.
type Calendar struct {
	Href        string
	DisplayName string
	Events      []string
}

// Account describes one user's principal, calendar home and calendars.
type Account struct {
	Principal string
	Home      string
	Calendars []Calendar
}

// SetupAccount registers the discovery and event query routes for a:
// PROPFIND on / and on the principal, PROPFIND on the home listing the
// calendars, and a REPORT on each calendar.
func (s *Server) SetupAccount(a Account) {
	s.HandleMultistatus("PROPFIND", "/", &xml.MultistatusResponse{
		Responses: []xml.Response{
			xml.OKResponse("/",
				xml.DAVProp(xml.TagCurrentUserPrincipal, "",
					xml.DAVProp(xml.TagHref, a.Principal))),
		},
	})

	s.HandleMultistatus("PROPFIND", a.Principal, &xml.MultistatusResponse{
		Responses: []xml.Response{
			xml.OKResponse(a.Principal,
				xml.CalDAVProp(xml.TagCalendarHomeSet, "",
					xml.DAVProp(xml.TagHref, a.Home))),
		},
	})

	listing := &xml.MultistatusResponse{
		Responses: []xml.Response{
			xml.OKResponse(a.Home,
				xml.DAVProp(xml.TagResourcetype, "", xml.DAVProp(xml.TagCollection, "")),
				xml.DAVProp(xml.TagDisplayname, "")),
		},
	}
	for _, cal := range a.Calendars {
		listing.Responses = append(listing.Responses, xml.OKResponse(cal.Href,
			xml.DAVProp(xml.TagResourcetype, "",
				xml.DAVProp(xml.TagCollection, ""),
				xml.CalDAVProp(xml.TagCalendar, "")),
			xml.DAVProp(xml.TagDisplayname, cal.DisplayName)))

		s.HandleMultistatus("REPORT", cal.Href, eventReport(cal))
	}
	s.HandleMultistatus("PROPFIND", a.Home, listing)
}

func eventReport(cal Calendar) *xml.MultistatusResponse {
	m := &xml.MultistatusResponse{Responses: make([]xml.Response, 0, len(cal.Events))}
	for i, event := range cal.Events {
		m.Responses = append(m.Responses, xml.OKResponse(
			fmt.Sprintf("%sevent-%d.ics", cal.Href, i),
			xml.DAVProp(xml.TagGetetag, fmt.Sprintf(`"%d"`, i)),
			xml.CalDAVProp(xml.TagCalendarData, event)))
	}
	return m
}
