// Package typedecl resolves schema types into the declared-type strings the
// script templates print next to parameters and fields.
package typedecl

import (
	"github.com/foragerr/swagger2loadtest/internal/naming"
	"github.com/foragerr/swagger2loadtest/internal/spec"
)

const (
	arrayType  = "array"
	mapType    = "map"
	objectType = "object"
	mapKeyType = "String"
)

// Resolver maps SchemaType values to declared types. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	mapping *TypeMapping
	namer   *naming.Normalizer
}

// NewResolver returns a Resolver over mapping and namer. Nil arguments fall back
// to DefaultTypeMapping and a Normalizer with the default reserved words.
func NewResolver(mapping *TypeMapping, namer *naming.Normalizer) *Resolver {
	if mapping == nil {
		mapping = DefaultTypeMapping()
	}
	if namer == nil {
		namer = naming.New(nil)
	}
	return &Resolver{mapping: mapping, namer: namer}
}

// Declare returns the declared type for t, e.g. "List[Order]" or
// "Map[String, Integer]". Containers nest; references are never expanded.
func (r *Resolver) Declare(t spec.SchemaType) string {
	switch v := t.(type) {
	case spec.Primitive:
		return r.primitive(v.Name)
	case spec.Array:
		return r.primitive(arrayType) + "[" + r.Declare(v.Items) + "]"
	case spec.Map:
		return r.primitive(mapType) + "[" + mapKeyType + ", " + r.Declare(v.Values) + "]"
	case spec.Reference:
		if name := r.namer.ModelName(v.Model); name != "" {
			return name
		}
	}
	return r.primitive(objectType)
}

func (r *Resolver) primitive(name string) string {
	mapped, ok := r.mapping.Lookup(name)
	if !ok {
		mapped = name
	}
	if out := r.namer.ModelName(mapped); out != "" {
		return out
	}
	return r.namer.ModelName(objectType)
}
