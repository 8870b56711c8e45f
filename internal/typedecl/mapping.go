package typedecl

import (
	"sort"
	"strings"
)

// TypeMapping maps swagger primitive names to target type names.
type TypeMapping struct {
	types map[string]string
}

var defaultTypes = map[string]string{
	"array":     "List",
	"map":       "Map",
	"List":      "List",
	"boolean":   "Boolean",
	"string":    "String",
	"int":       "Integer",
	"integer":   "Integer",
	"long":      "Long",
	"short":     "Short",
	"char":      "String",
	"float":     "Float",
	"double":    "Double",
	"number":    "BigDecimal",
	"date":      "Date",
	"DateTime":  "Date",
	"object":    "Object",
	"file":      "File",
	"UUID":      "UUID",
	"ByteArray": "ByteArray",
	"binary":    "ByteArray",
}

// DefaultTypeMapping returns a fresh copy of the default table.
func DefaultTypeMapping() *TypeMapping {
	m := &TypeMapping{types: make(map[string]string, len(defaultTypes))}
	for k, v := range defaultTypes {
		m.types[k] = v
	}
	return m
}

// Override replaces or adds entries. Blank keys or values are ignored.
func (m *TypeMapping) Override(overrides map[string]string) *TypeMapping {
	for k, v := range overrides {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		m.types[k] = v
	}
	return m
}

// Lookup returns the mapped type for a swagger primitive name.
func (m *TypeMapping) Lookup(name string) (string, bool) {
	v, ok := m.types[name]
	return v, ok
}

// Keys returns the mapped swagger names in sorted order.
func (m *TypeMapping) Keys() []string {
	out := make([]string, 0, len(m.types))
	for k := range m.types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
