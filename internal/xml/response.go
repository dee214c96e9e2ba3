package xml

import "github.com/beevik/etree"

// StatusOK is the propstat status line for found properties.
const StatusOK = "HTTP/1.1 200 OK"

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	Status    string
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []Property
	Status string
}

// OKResponse is a response whose properties were all found.
func OKResponse(href string, props ...Property) Response {
	return Response{
		Href:      href,
		PropStats: []PropStat{{Props: props, Status: StatusOK}},
	}
}

// ToXML converts a MultistatusResponse to an XML document
func (m *MultistatusResponse) ToXML() *etree.Document {
	doc := newDocument()
	root := doc.CreateElement(PrefixDAV + ":" + TagMultistatus)
	declareNamespaces(root, PrefixDAV, PrefixCalDAV)

	for _, resp := range m.Responses {
		response := root.CreateElement(PrefixDAV + ":" + TagResponse)
		href := response.CreateElement(PrefixDAV + ":" + TagHref)
		href.SetText(resp.Href)

		if resp.Status != "" {
			status := response.CreateElement(PrefixDAV + ":" + TagStatus)
			status.SetText(resp.Status)
			continue
		}

		for _, propstat := range resp.PropStats {
			ps := response.CreateElement(PrefixDAV + ":" + TagPropstat)
			prop := ps.CreateElement(PrefixDAV + ":" + TagProp)
			for _, p := range propstat.Props {
				prop.AddChild(p.ToElement())
			}
			status := ps.CreateElement(PrefixDAV + ":" + TagStatus)
			status.SetText(propstat.Status)
		}
	}

	return doc
}

// Bytes renders the response as an XML document.
func (m *MultistatusResponse) Bytes() []byte {
	b, err := m.ToXML().WriteToBytes()
	if err != nil {
		return nil
	}
	return b
}
