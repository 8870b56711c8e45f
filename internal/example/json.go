package example

import (
	"bytes"
	"encoding/json"

	"github.com/foragerr/swagger2loadtest/internal/spec"
)

const jsonIndent = "  "

func (g *Generator) jsonExample(model string) (string, bool) {
	v := g.modelValue(model, visiting{})
	raw, err := marshal(v)
	if err != nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", jsonIndent); err != nil {
		return "", false
	}
	return buf.String(), true
}

func (g *Generator) modelValue(name string, seen visiting) any {
	m := g.lookup(name)
	if m == nil || !seen.enter(name) {
		return object{}
	}
	defer seen.leave(name)

	if m.Example != nil {
		return m.Example
	}
	props := g.properties(m, seen)
	if m.Type != nil && len(props) == 0 {
		return g.typeValue(m.Type, seen)
	}
	obj := make(object, 0, len(props))
	for _, p := range props {
		obj = obj.set(p.Name, g.propertyValue(p, seen))
	}
	return obj
}

func (g *Generator) propertyValue(p spec.Property, seen visiting) any {
	if v := pick(p.Example, p.Enum); v != nil {
		return v
	}
	return g.typeValue(p.Type, seen)
}

func (g *Generator) typeValue(t spec.SchemaType, seen visiting) any {
	switch v := t.(type) {
	case spec.Primitive:
		return primitiveValue(v.Name)
	case spec.Array:
		return []any{g.typeValue(v.Items, seen)}
	case spec.Map:
		return object{{Name: "key", Value: g.typeValue(v.Values, seen)}}
	case spec.Reference:
		return g.modelValue(v.Model, seen)
	}
	return object{}
}
