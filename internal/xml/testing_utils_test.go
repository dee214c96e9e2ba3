package xml

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

var (
	xmlDeclaration = regexp.MustCompile(`<\?xml[^>]*\?>`)
	interElementWS = regexp.MustCompile(`>\s+<`)
)

// normalizeXML removes the declaration and whitespace between elements.
func normalizeXML(s string) string {
	s = xmlDeclaration.ReplaceAllString(s, "")
	s = interElementWS.ReplaceAllString(s, "><")
	return strings.TrimSpace(s)
}

// elementToString converts an etree.Element to a string for testing
func elementToString(elem *etree.Element) string {
	doc := etree.NewDocument()
	doc.AddChild(elem.Copy())
	s, _ := doc.WriteToString()
	return normalizeXML(s)
}
