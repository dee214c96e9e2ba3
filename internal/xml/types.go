package xml

import "github.com/beevik/etree"

// Local names of the elements read from or written to CalDAV documents
const (
	TagPropfind                      = "propfind"
	TagProp                          = "prop"
	TagSelf                          = "self"
	TagMultistatus                   = "multistatus"
	TagResponse                      = "response"
	TagHref                          = "href"
	TagPropstat                      = "propstat"
	TagStatus                        = "status"
	TagResourcetype                  = "resourcetype"
	TagCollection                    = "collection"
	TagCalendar                      = "calendar"
	TagDisplayname                   = "displayname"
	TagGetetag                       = "getetag"
	TagCurrentUserPrincipal          = "current-user-principal"
	TagCalendarHomeSet               = "calendar-home-set"
	TagSupportedCalendarComponentSet = "supported-calendar-component-set"
	TagComp                          = "comp"
	TagCalendarQuery                 = "calendar-query"
	TagCalendarData                  = "calendar-data"
	TagFilter                        = "filter"
	TagCompFilter                    = "comp-filter"
	TagTimeRange                     = "time-range"
)

// Property is a generic XML property. Prefix is one of PrefixDAV or
// PrefixCalDAV; an empty prefix writes the element without one.
type Property struct {
	Name        string
	Prefix      string
	TextContent string
	Children    []Property
	Attributes  map[string]string
}

// ToElement converts a Property to an etree.Element
func (p *Property) ToElement() *etree.Element {
	elem := etree.NewElement(p.Name)
	elem.Space = p.Prefix
	if p.TextContent != "" {
		elem.SetText(p.TextContent)
	}
	for key, value := range p.Attributes {
		elem.CreateAttr(key, value)
	}
	for _, child := range p.Children {
		elem.AddChild(child.ToElement())
	}
	return elem
}

// DAVProp returns a property in the DAV: namespace.
func DAVProp(name, text string, children ...Property) Property {
	return Property{Name: name, Prefix: PrefixDAV, TextContent: text, Children: children}
}

// CalDAVProp returns a property in the CalDAV namespace.
func CalDAVProp(name, text string, children ...Property) Property {
	return Property{Name: name, Prefix: PrefixCalDAV, TextContent: text, Children: children}
}
