package xml

import "github.com/beevik/etree"

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
)

// Prefixes used in every document this package writes.
const (
	PrefixDAV    = "d"
	PrefixCalDAV = "c"
)

var prefixNamespace = map[string]string{
	PrefixDAV:    DAV,
	PrefixCalDAV: CalDAV,
}

// declareNamespaces adds xmlns declarations for the given prefixes to elem.
func declareNamespaces(elem *etree.Element, prefixes ...string) {
	for _, prefix := range prefixes {
		if ns, ok := prefixNamespace[prefix]; ok {
			elem.CreateAttr("xmlns:"+prefix, ns)
		}
	}
}
