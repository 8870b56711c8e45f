package example

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/foragerr/swagger2loadtest/internal/spec"
)

// object is a JSON object that keeps field order.
type object []field

type field struct {
	Name  string
	Value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// set replaces an existing field of the same name or appends a new one.
func (o object) set(name string, v any) object {
	for i := range o {
		if o[i].Name == name {
			o[i].Value = v
			return o
		}
	}
	return append(o, field{Name: name, Value: v})
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// primitiveValue is the fallback value for a primitive type name.
func primitiveValue(name string) any {
	switch name {
	case "string":
		return "aeiou"
	case "integer", "int", "short":
		return 123
	case "long":
		return int64(123456789)
	case "float":
		return 1.1
	case "double":
		return 3.149
	case "number":
		return 1.3579
	case "boolean":
		return true
	case "date":
		return "2000-01-23"
	case "DateTime":
		return "2000-01-23T04:56:07.000+00:00"
	case "UUID":
		return "046b6c7f-0b8a-43b9-b35d-6489e6daee91"
	case "ByteArray", "binary", "file":
		return ""
	}
	return object{}
}

// pick applies example, then enum, then nil to signal "derive from type".
func pick(example any, enum []any) any {
	if example != nil {
		return example
	}
	if len(enum) > 0 {
		return enum[0]
	}
	return nil
}

// scalarText renders a value as XML character data. Structured values fall back
// to their compact JSON form.
func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case object:
		if len(x) == 0 {
			return ""
		}
	case bool, int, int32, int64, float32, float64, json.Number:
		return fmt.Sprint(x)
	}
	b, err := marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

type visiting map[string]struct{}

func (s visiting) enter(name string) bool {
	if _, ok := s[name]; ok {
		return false
	}
	s[name] = struct{}{}
	return true
}

func (s visiting) leave(name string) { delete(s, name) }

// properties returns the inherited properties followed by the model's own,
// an own property replacing an inherited one of the same name.
func (g *Generator) properties(m *spec.Model, seen visiting) []spec.Property {
	var out []spec.Property
	index := map[string]int{}
	add := func(p spec.Property) {
		if i, ok := index[p.Name]; ok {
			out[i] = p
			return
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	for _, parent := range m.Inherits {
		pm := g.lookup(parent)
		if pm == nil || !seen.enter(parent) {
			continue
		}
		for _, p := range g.properties(pm, seen) {
			add(p)
		}
		seen.leave(parent)
	}
	for _, p := range m.Properties {
		add(p)
	}
	return out
}
