package xml

import "github.com/beevik/etree"

// Component names used by the event query filter. Only VEVENT is queried.
const (
	CompVCalendar = "VCALENDAR"
	CompVEvent    = "VEVENT"
)

// PrincipalQuery is the PROPFIND body asking for the current user principal.
func PrincipalQuery() string {
	doc, root := newPropfind(PrefixDAV)
	prop := root.CreateElement(PrefixDAV + ":" + TagProp)
	prop.CreateElement(PrefixDAV + ":" + TagCurrentUserPrincipal)
	return writeString(doc)
}

// CalendarHomeQuery is the PROPFIND body asking a principal for its
// calendar home set.
func CalendarHomeQuery() string {
	doc, root := newPropfind(PrefixDAV, PrefixCalDAV)
	root.CreateElement(PrefixDAV + ":" + TagSelf)
	prop := root.CreateElement(PrefixDAV + ":" + TagProp)
	prop.CreateElement(PrefixCalDAV + ":" + TagCalendarHomeSet)
	return writeString(doc)
}

// CalendarListQuery is the depth 1 PROPFIND body used to list the members of
// a calendar home.
func CalendarListQuery() string {
	doc, root := newPropfind(PrefixDAV, PrefixCalDAV)
	prop := root.CreateElement(PrefixDAV + ":" + TagProp)
	prop.CreateElement(PrefixDAV + ":" + TagDisplayname)
	prop.CreateElement(PrefixDAV + ":" + TagResourcetype)
	prop.CreateElement(PrefixCalDAV + ":" + TagSupportedCalendarComponentSet)
	return writeString(doc)
}

// EventQuery is the calendar-query REPORT body selecting VEVENTs that
// overlap [start, end). start and end are UTC date-times in basic format,
// e.g. 20201102T000000Z.
func EventQuery(start, end string) string {
	doc := newDocument()
	root := doc.CreateElement(PrefixCalDAV + ":" + TagCalendarQuery)
	declareNamespaces(root, PrefixDAV, PrefixCalDAV)

	prop := root.CreateElement(PrefixDAV + ":" + TagProp)
	prop.CreateElement(PrefixDAV + ":" + TagGetetag)
	prop.CreateElement(PrefixCalDAV + ":" + TagCalendarData)

	filter := root.CreateElement(PrefixCalDAV + ":" + TagFilter)
	calendar := filter.CreateElement(PrefixCalDAV + ":" + TagCompFilter)
	calendar.CreateAttr("name", CompVCalendar)
	event := calendar.CreateElement(PrefixCalDAV + ":" + TagCompFilter)
	event.CreateAttr("name", CompVEvent)
	timeRange := event.CreateElement(PrefixCalDAV + ":" + TagTimeRange)
	timeRange.CreateAttr("start", start)
	timeRange.CreateAttr("end", end)

	return writeString(doc)
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func newPropfind(prefixes ...string) (*etree.Document, *etree.Element) {
	doc := newDocument()
	root := doc.CreateElement(PrefixDAV + ":" + TagPropfind)
	declareNamespaces(root, prefixes...)
	return doc, root
}

func writeString(doc *etree.Document) string {
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
