package xml

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// FindFirst returns the first element, in depth-first pre-order, whose local
// name equals tag. The root itself is checked before its children. Namespace
// prefixes are ignored.
func FindFirst(root *etree.Element, tag string) mo.Option[*etree.Element] {
	if root == nil {
		return mo.None[*etree.Element]()
	}
	if root.Tag == tag {
		return mo.Some(root)
	}
	for _, child := range root.ChildElements() {
		if found := FindFirst(child, tag); found.IsPresent() {
			return found
		}
	}
	return mo.None[*etree.Element]()
}

// FindAll returns every element under root (root included) whose local name
// equals tag, in document order. The walk continues below a match, so
// matching elements nested inside a match are returned too.
func FindAll(root *etree.Element, tag string) []*etree.Element {
	found := make([]*etree.Element, 0)
	if root == nil {
		return found
	}
	return findAll(root, tag, found)
}

func findAll(elem *etree.Element, tag string, found []*etree.Element) []*etree.Element {
	if elem.Tag == tag {
		found = append(found, elem)
	}
	for _, child := range elem.ChildElements() {
		found = findAll(child, tag, found)
	}
	return found
}

// Text returns the character data of elem and all of its descendants,
// concatenated in document order.
func Text(elem *etree.Element) string {
	if elem == nil {
		return ""
	}
	var sb strings.Builder
	writeText(&sb, elem)
	return sb.String()
}

func writeText(sb *strings.Builder, elem *etree.Element) {
	for _, tok := range elem.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			writeText(sb, t)
		}
	}
}

// ChildText finds the first descendant named tag and returns its text with
// surrounding whitespace removed. The option is empty when no such element
// exists; an existing but empty element yields Some("").
func ChildText(root *etree.Element, tag string) mo.Option[string] {
	elem, ok := FindFirst(root, tag).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(strings.TrimSpace(Text(elem)))
}
