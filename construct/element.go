package construct

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ev1313/dingsda/errs"
)

// Element is the minimal tree contract the XML bridge (ToElement/
// FromElement) reads and writes. It intentionally does not know anything
// about XML text syntax -- the textual representation is out of scope
// for the core engine; MarshalXML/UnmarshalXML below are a convenience
// default built on encoding/xml so the bridge is testable end to end.
type Element struct {
	tag      string
	attrs    map[string]string
	attrOrder []string
	children []*Element
}

// NewElement returns an empty element named tag.
func NewElement(tag string) *Element {
	return &Element{tag: tag, attrs: make(map[string]string)}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// SetAttr sets (or overwrites) an attribute.
func (e *Element) SetAttr(name, value string) {
	if _, ok := e.attrs[name]; !ok {
		e.attrOrder = append(e.attrOrder, name)
	}
	e.attrs[name] = value
}

// GetAttr looks up an attribute.
func (e *Element) GetAttr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// AttrNames returns attribute names in the order they were set.
func (e *Element) AttrNames() []string {
	out := make([]string, len(e.attrOrder))
	copy(out, e.attrOrder)
	return out
}

// AppendChild appends a child element.
func (e *Element) AppendChild(c *Element) { e.children = append(e.children, c) }

// Children returns the element's children in order.
func (e *Element) Children() []*Element { return e.children }

// ChildByTag returns the first child with the given tag, if any.
func (e *Element) ChildByTag(tag string) (*Element, bool) {
	for _, c := range e.children {
		if c.tag == tag {
			return c, true
		}
	}
	return nil, false
}

// MarshalXML renders e as indented XML text, the default convenience
// serializer. Tags and attributes are written by hand; attribute values
// are escaped with the standard library's encoding/xml, so UnmarshalXML
// reads them back unchanged (no pack repo ships a
// generic attribute-tree<->XML-text codec independent of a specific
// schema, and the XML text format itself is explicitly out of scope --
// see DESIGN.md).
func MarshalXML(e *Element) ([]byte, error) {
	var buf bytes.Buffer
	writeElement(&buf, e, 0)
	return buf.Bytes(), nil
}

func writeElement(buf *bytes.Buffer, e *Element, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteString("<")
	buf.WriteString(e.tag)
	for _, name := range e.attrOrder {
		fmt.Fprintf(buf, " %s=\"", name)
		_ = xml.EscapeText(buf, []byte(e.attrs[name]))
		buf.WriteString("\"")
	}
	if len(e.children) == 0 {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteString(">\n")
	for _, c := range e.children {
		writeElement(buf, c, depth+1)
	}
	buf.WriteString(indent)
	buf.WriteString("</")
	buf.WriteString(e.tag)
	buf.WriteString(">\n")
}

// UnmarshalXML parses XML text produced by MarshalXML (or any compatible
// document) back into an Element tree.
func UnmarshalXML(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*Element
	var root *Element
	for {
		tok, err := dec.Token()
		if err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, errs.NewXMLError("", "parsing xml: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := NewElement(t.Name.Local)
			for _, a := range t.Attr {
				el.SetAttr(a.Name.Local, a.Value)
			}
			if len(stack) > 0 {
				stack[len(stack)-1].AppendChild(el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errs.NewXMLError("", "unbalanced closing tag %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, errs.NewXMLError("", "empty document")
	}
	return root, nil
}
