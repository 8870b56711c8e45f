package example

import (
	"bytes"
	"encoding/xml"

	"github.com/foragerr/swagger2loadtest/internal/spec"
)

// xmlExample renders the model as an indented document. Unknown models have no
// XML form.
func (g *Generator) xmlExample(model string) (string, bool) {
	m := g.lookup(model)
	if m == nil {
		return "", false
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", jsonIndent)

	w := &xmlWriter{g: g, enc: enc, seen: visiting{}}
	w.model(elementName(model, m.XML), model)
	if w.err == nil {
		w.err = enc.Flush()
	}
	if w.err != nil {
		return "", false
	}
	return buf.String(), true
}

type xmlWriter struct {
	g    *Generator
	enc  *xml.Encoder
	seen visiting
	err  error
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *xmlWriter) text(name string, v any) {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	w.token(start)
	if s := scalarText(v); s != "" {
		w.token(xml.CharData(s))
	}
	w.token(start.End())
}

func (w *xmlWriter) empty(name string) {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	w.token(start)
	w.token(start.End())
}

// model writes the named model under the element name. A model already being
// written, or missing from the store, becomes an empty element.
func (w *xmlWriter) model(elem, name string) {
	m := w.g.lookup(name)
	if m == nil || !w.seen.enter(name) {
		w.empty(elem)
		return
	}
	defer w.seen.leave(name)

	if m.Example != nil {
		w.text(elem, m.Example)
		return
	}
	props := w.g.properties(m, w.seen)
	if m.Type != nil && len(props) == 0 {
		w.value(elem, m.Type, m.XML)
		return
	}

	start := xml.StartElement{Name: xml.Name{Local: elem}}
	var children []spec.Property
	for _, p := range props {
		if p.XML != nil && p.XML.Attribute {
			v := pick(p.Example, p.Enum)
			if v == nil {
				v = w.g.typeValue(p.Type, w.seen)
			}
			start.Attr = append(start.Attr, xml.Attr{
				Name:  xml.Name{Local: elementName(p.Name, p.XML)},
				Value: scalarText(v),
			})
			continue
		}
		children = append(children, p)
	}
	w.token(start)
	for _, p := range children {
		name := elementName(p.Name, p.XML)
		if v := pick(p.Example, p.Enum); v != nil {
			w.text(name, v)
			continue
		}
		w.value(name, p.Type, p.XML)
	}
	w.token(start.End())
}

func (w *xmlWriter) value(elem string, t spec.SchemaType, info *spec.XMLInfo) {
	switch v := t.(type) {
	case spec.Primitive:
		w.text(elem, primitiveValue(v.Name))
	case spec.Array:
		if info != nil && info.Wrapped {
			start := xml.StartElement{Name: xml.Name{Local: elem}}
			w.token(start)
			w.value(w.itemName(v.Items, elem), v.Items, nil)
			w.token(start.End())
			return
		}
		w.value(elem, v.Items, nil)
	case spec.Map:
		start := xml.StartElement{Name: xml.Name{Local: elem}}
		w.token(start)
		w.value("key", v.Values, nil)
		w.token(start.End())
	case spec.Reference:
		w.model(elem, v.Model)
	default:
		w.empty(elem)
	}
}

// itemName is the element name of a wrapped array item: the referenced model's
// xml name or definition name, or the wrapper's own name for other items.
func (w *xmlWriter) itemName(items spec.SchemaType, wrapper string) string {
	if r, ok := items.(spec.Reference); ok {
		if m := w.g.lookup(r.Model); m != nil {
			return elementName(r.Model, m.XML)
		}
	}
	return wrapper
}

func elementName(name string, info *spec.XMLInfo) string {
	if info != nil && info.Name != "" {
		return info.Name
	}
	return name
}
