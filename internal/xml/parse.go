package xml

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrMalformedXML is returned when a response body is not a well-formed XML
// document with a root element.
var ErrMalformedXML = errors.New("malformed XML document")

// ParseTree parses data and returns the document's root element.
func ParseTree(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return root, nil
}
