package spec

import "strings"

// SchemaType describes the shape of a schema-typed value. It is a closed set:
// Primitive, Array, Map and Reference are the only implementations, and
// consumers switch over them exhaustively.
type SchemaType interface {
    schemaType()
}

// Primitive is a leaf type identified by its swagger type name, e.g. "string",
// "long" or "DateTime".
type Primitive struct {
    Name string
}

// Array is a list of Items.
type Array struct {
    Items SchemaType
}

// Map is a string-keyed dictionary of Values.
type Map struct {
    Values SchemaType
}

// Reference names a model in the document's model store. Its body is never
// expanded by the type resolver.
type Reference struct {
    Model string
}

func (Primitive) schemaType() {}
func (Array) schemaType()     {}
func (Map) schemaType()       {}
func (Reference) schemaType() {}

const definitionsPrefix = "#/definitions/"

// SimpleRef strips the definitions prefix (or any JSON pointer / file prefix)
// from a $ref and returns the bare model name.
func SimpleRef(ref string) string {
    ref = strings.TrimSpace(ref)
    if ref == "" {
        return ""
    }
    if strings.HasPrefix(ref, definitionsPrefix) {
        return ref[len(definitionsPrefix):]
    }
    if i := strings.LastIndex(ref, "/"); i >= 0 {
        return ref[i+1:]
    }
    return ref
}

// BodyModel resolves a body schema to the single named model it carries: the
// reference itself, or the item reference of an array body. Any other shape
// yields the empty name.
func BodyModel(t SchemaType) string {
    switch v := t.(type) {
    case Reference:
        return v.Model
    case Array:
        if r, ok := v.Items.(Reference); ok {
            return r.Model
        }
    }
    return ""
}

// PrimitiveName maps a swagger type/format pair to the primitive type name used
// by the type-mapping table.
func PrimitiveName(typ, format string) string {
    switch typ {
    case "integer":
        if format == "int64" {
            return "long"
        }
        return "integer"
    case "number":
        switch format {
        case "float":
            return "float"
        case "double":
            return "double"
        }
        return "number"
    case "string":
        switch format {
        case "date":
            return "date"
        case "date-time":
            return "DateTime"
        case "byte":
            return "ByteArray"
        case "binary":
            return "binary"
        case "uuid":
            return "UUID"
        }
        return "string"
    case "boolean":
        return "boolean"
    case "file":
        return "file"
    case "":
        return "object"
    }
    return typ
}
