package spec

// Document model consumed by the preprocessing pipeline, the type resolver and
// the script emitter. It is built once per run and never mutated afterwards.

type HttpMethod string

const (
    GET     HttpMethod = "get"
    POST    HttpMethod = "post"
    PUT     HttpMethod = "put"
    DELETE  HttpMethod = "delete"
    PATCH   HttpMethod = "patch"
    HEAD    HttpMethod = "head"
    OPTIONS HttpMethod = "options"
)

// Parameter locations as they appear in a Swagger 2 document.
const (
    InBody     = "body"
    InPath     = "path"
    InQuery    = "query"
    InHeader   = "header"
    InFormData = "formData"
)

type Document struct {
    Title       string
    Version     string
    Description string
    Host        string
    BasePath    string
    Schemes     []string
    Consumes    []string
    Tags        []string
    Operations  []Operation
    Models      map[string]*Model // by definition name
}

type Operation struct {
    ID          string // method+path
    OperationID string
    Method      HttpMethod
    Path        string
    Summary     string
    Description string
    Tags        []string
    Consumes    []string
    // Parameters are the operation's own, in declaration order; only the first
    // one is ever inspected for a request body.
    Parameters []Parameter
    // PathParameters are inherited from the path item and not overridden by
    // the operation.
    PathParameters []Parameter
}

// AllParameters returns the operation's own parameters followed by the
// inherited path-level ones.
func (o Operation) AllParameters() []Parameter {
    if len(o.PathParameters) == 0 {
        return o.Parameters
    }
    out := make([]Parameter, 0, len(o.Parameters)+len(o.PathParameters))
    out = append(out, o.Parameters...)
    return append(out, o.PathParameters...)
}

type Parameter struct {
    Name     string
    In       string
    Required bool
    // Schema is the body schema for body parameters and the type/format/items
    // description for every other location. It may be nil.
    Schema SchemaType
}

// IsBody reports whether the parameter carries the request body.
func (p Parameter) IsBody() bool { return p.In == InBody }

type Model struct {
    Name        string
    Description string
    // Type is set for definitions that are not plain objects (arrays, maps,
    // primitives, aliases of other models).
    Type       SchemaType
    Properties []Property // sorted by name
    // Inherits lists models referenced from allOf; their properties precede
    // the model's own in examples.
    Inherits   []string
    Required   []string
    Example    any
    XML        *XMLInfo
}

type Property struct {
    Name     string
    Type     SchemaType
    Required bool
    Example  any
    Enum     []any
    XML      *XMLInfo
}

// XMLInfo carries the subset of the Swagger xml object used for XML examples.
type XMLInfo struct {
    Name      string
    Attribute bool
    Wrapped   bool
}
