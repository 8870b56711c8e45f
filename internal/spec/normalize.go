package spec

import (
    "context"
    "fmt"
    "regexp"
    "sort"
    "strings"

    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the Document is built from a Swagger document.
type BuildOption func(*buildConfig)

type buildConfig struct {
    includeTags map[string]struct{}
    excludeTags map[string]struct{}
    methods     map[HttpMethod]struct{}
    pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        if len(tags) == 0 {
            return
        }
        if c.includeTags == nil {
            c.includeTags = make(map[string]struct{}, len(tags))
        }
        for _, t := range tags {
            t = strings.TrimSpace(t)
            if t == "" {
                continue
            }
            c.includeTags[t] = struct{}{}
        }
    }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        if len(tags) == 0 {
            return
        }
        if c.excludeTags == nil {
            c.excludeTags = make(map[string]struct{}, len(tags))
        }
        for _, t := range tags {
            t = strings.TrimSpace(t)
            if t == "" {
                continue
            }
            c.excludeTags[t] = struct{}{}
        }
    }
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
    return func(c *buildConfig) {
        if len(methods) == 0 {
            return
        }
        if c.methods == nil {
            c.methods = make(map[HttpMethod]struct{}, len(methods))
        }
        for _, m := range methods {
            c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
        }
    }
}

// WithPathPatterns keeps only operations whose path matches at least one of the
// provided regular expressions. Invalid patterns never match.
func WithPathPatterns(patterns []string) BuildOption {
    return func(c *buildConfig) {
        for _, p := range patterns {
            p = strings.TrimSpace(p)
            if p == "" {
                continue
            }
            re, err := regexp.Compile(p)
            if err != nil {
                re = regexp.MustCompile("a^$")
            }
            c.pathRes = append(c.pathRes, re)
        }
    }
}

// BuildDocument converts a Swagger 2.0 document into the generator's Document.
// Operations are ordered by path, then by a fixed method order; models are keyed
// by definition name.
func BuildDocument(ctx context.Context, doc *openapi2.T, opts ...BuildOption) (*Document, error) {
    _ = ctx
    if doc == nil {
        return nil, fmt.Errorf("nil document")
    }

    cfg := &buildConfig{}
    for _, opt := range opts {
        opt(cfg)
    }

    d := &Document{
        Title:       safeStr(doc.Info.Title),
        Version:     safeStr(doc.Info.Version),
        Description: safeStr(doc.Info.Description),
        Host:        safeStr(doc.Host),
        BasePath:    strings.TrimRight(safeStr(doc.BasePath), "/"),
        Schemes:     append([]string(nil), doc.Schemes...),
        Consumes:    append([]string(nil), doc.Consumes...),
        Models:      make(map[string]*Model, len(doc.Definitions)),
    }

    names := make([]string, 0, len(doc.Definitions))
    for name := range doc.Definitions {
        names = append(names, name)
    }
    sort.Strings(names)
    for _, name := range names {
        d.Models[name] = toModel(name, doc.Definitions[name])
    }

    pathKeys := make([]string, 0, len(doc.Paths))
    for p := range doc.Paths {
        pathKeys = append(pathKeys, p)
    }
    sort.Strings(pathKeys)

    for _, p := range pathKeys {
        item := doc.Paths[p]
        if item == nil {
            continue
        }

        // Supported HTTP methods in a stable order
        ops := []struct {
            m HttpMethod
            o *openapi2.Operation
        }{
            {GET, item.Get},
            {POST, item.Post},
            {PUT, item.Put},
            {DELETE, item.Delete},
            {PATCH, item.Patch},
            {HEAD, item.Head},
            {OPTIONS, item.Options},
        }

        for _, pair := range ops {
            if pair.o == nil {
                continue
            }
            if len(cfg.methods) > 0 {
                if _, ok := cfg.methods[pair.m]; !ok {
                    continue
                }
            }
            if len(cfg.pathRes) > 0 {
                matched := false
                for _, re := range cfg.pathRes {
                    if re.MatchString(p) {
                        matched = true
                        break
                    }
                }
                if !matched {
                    continue
                }
            }

            tags := make([]string, 0, len(pair.o.Tags))
            for _, t := range pair.o.Tags {
                t = strings.TrimSpace(t)
                if t != "" {
                    tags = append(tags, t)
                }
            }
            if !allowByTags(tags, cfg) {
                continue
            }

            consumes := pair.o.Consumes
            if len(consumes) == 0 {
                consumes = doc.Consumes
            }

            own, inherited := mergeParameters(doc, item.Parameters, pair.o.Parameters)
            d.Operations = append(d.Operations, Operation{
                ID:             string(pair.m) + " " + p,
                OperationID:    safeStr(pair.o.OperationID),
                Method:         pair.m,
                Path:           p,
                Summary:        safeStr(pair.o.Summary),
                Description:    safeStr(pair.o.Description),
                Tags:           tags,
                Consumes:       append([]string(nil), consumes...),
                Parameters:     own,
                PathParameters: inherited,
            })
        }
    }

    d.Tags = collectSortedTags(d.Operations)
    return d, nil
}

// mergeParameters returns the operation-level parameters in declaration order
// and the path-level parameters the operation does not override.
func mergeParameters(doc *openapi2.T, pathLevel, opLevel openapi2.Parameters) (own, inherited []Parameter) {
    seen := make(map[string]struct{}, len(opLevel))
    for _, raw := range opLevel {
        pm := toParameter(doc, raw)
        if pm == nil {
            continue
        }
        seen[paramKey(pm.In, pm.Name)] = struct{}{}
        own = append(own, *pm)
    }
    for _, raw := range pathLevel {
        pm := toParameter(doc, raw)
        if pm == nil {
            continue
        }
        if _, dup := seen[paramKey(pm.In, pm.Name)]; dup {
            continue
        }
        inherited = append(inherited, *pm)
    }
    return own, inherited
}

func toParameter(doc *openapi2.T, p *openapi2.Parameter) *Parameter {
    if p == nil {
        return nil
    }
    if p.Ref != "" {
        target, ok := doc.Parameters[SimpleRef(p.Ref)]
        if !ok || target == nil || target.Ref != "" {
            return nil
        }
        p = target
    }
    pm := &Parameter{
        Name:     safeStr(p.Name),
        In:       safeStr(p.In),
        Required: p.Required,
    }
    if pm.In == InBody {
        pm.Schema = toSchemaType(p.Schema)
        return pm
    }
    if p.Type == "array" {
        pm.Schema = Array{Items: itemsOrObject(p.Items)}
    } else if p.Type != "" {
        pm.Schema = Primitive{Name: PrimitiveName(p.Type, p.Format)}
    }
    return pm
}

// toSchemaType folds a kin-openapi schema into the SchemaType union. References
// are never followed.
func toSchemaType(ref *openapi3.SchemaRef) SchemaType {
    if ref == nil {
        return nil
    }
    if ref.Ref != "" {
        return Reference{Model: SimpleRef(ref.Ref)}
    }
    v := ref.Value
    if v == nil {
        return Primitive{Name: "object"}
    }
    switch {
    case v.Type == "array" || (v.Type == "" && v.Items != nil):
        return Array{Items: itemsOrObject(v.Items)}
    case (v.Type == "object" || v.Type == "") && len(v.Properties) == 0 && v.AdditionalProperties.Schema != nil:
        return Map{Values: toSchemaType(v.AdditionalProperties.Schema)}
    case (v.Type == "object" || v.Type == "") && len(v.Properties) == 0 && v.AdditionalProperties.Has != nil && *v.AdditionalProperties.Has:
        return Map{Values: Primitive{Name: "object"}}
    }
    return Primitive{Name: PrimitiveName(v.Type, v.Format)}
}

func itemsOrObject(ref *openapi3.SchemaRef) SchemaType {
    if t := toSchemaType(ref); t != nil {
        return t
    }
    return Primitive{Name: "object"}
}

func toModel(name string, ref *openapi3.SchemaRef) *Model {
    m := &Model{Name: name}
    if ref == nil {
        return m
    }
    if ref.Ref != "" {
        m.Type = Reference{Model: SimpleRef(ref.Ref)}
        return m
    }
    v := ref.Value
    if v == nil {
        return m
    }
    m.Description = safeStr(v.Description)
    m.Example = v.Example
    m.XML = toXMLInfo(v.XML)
    m.Required = append([]string(nil), v.Required...)

    props := make(openapi3.Schemas, len(v.Properties))
    for k, p := range v.Properties {
        props[k] = p
    }
    // Inline allOf members contribute their properties to the model.
    for _, part := range v.AllOf {
        if part == nil || part.Ref != "" || part.Value == nil {
            continue
        }
        for k, p := range part.Value.Properties {
            if _, exists := props[k]; !exists {
                props[k] = p
            }
        }
        m.Required = append(m.Required, part.Value.Required...)
    }
    if len(props) == 0 {
        if t := toSchemaType(ref); t != nil {
            if p, ok := t.(Primitive); !ok || p.Name != "object" {
                m.Type = t
            }
        }
        m.Inherits = inheritedModels(v.AllOf)
        return m
    }

    required := make(map[string]struct{}, len(m.Required))
    for _, r := range m.Required {
        required[r] = struct{}{}
    }
    keys := make([]string, 0, len(props))
    for k := range props {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    for _, k := range keys {
        pref := props[k]
        _, req := required[k]
        prop := Property{Name: k, Type: itemsOrObject(pref), Required: req}
        if pref != nil && pref.Ref == "" && pref.Value != nil {
            prop.Example = pref.Value.Example
            if len(pref.Value.Enum) > 0 {
                prop.Enum = append([]any(nil), pref.Value.Enum...)
            }
            prop.XML = toXMLInfo(pref.Value.XML)
        }
        m.Properties = append(m.Properties, prop)
    }
    m.Inherits = inheritedModels(v.AllOf)
    return m
}

func inheritedModels(parts openapi3.SchemaRefs) []string {
    var out []string
    for _, part := range parts {
        if part != nil && part.Ref != "" {
            out = append(out, SimpleRef(part.Ref))
        }
    }
    return out
}

func toXMLInfo(x *openapi3.XML) *XMLInfo {
    if x == nil {
        return nil
    }
    return &XMLInfo{Name: safeStr(x.Name), Attribute: x.Attribute, Wrapped: x.Wrapped}
}

func allowByTags(tags []string, cfg *buildConfig) bool {
    hasInclude := len(cfg.includeTags) > 0
    if hasInclude {
        ok := false
        for _, t := range tags {
            if _, yes := cfg.includeTags[t]; yes {
                ok = true
                break
            }
        }
        if !ok {
            return false
        }
    }
    if len(cfg.excludeTags) > 0 {
        for _, t := range tags {
            if _, blocked := cfg.excludeTags[t]; blocked {
                return false
            }
        }
    }
    return true
}

func paramKey(in, name string) string { return in + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }

func collectSortedTags(ops []Operation) []string {
    set := make(map[string]struct{})
    for _, op := range ops {
        for _, t := range op.Tags {
            if t = strings.TrimSpace(t); t != "" {
                set[t] = struct{}{}
            }
        }
    }
    if len(set) == 0 {
        return nil
    }
    out := make([]string, 0, len(set))
    for t := range set {
        out = append(out, t)
    }
    sort.Strings(out)
    return out
}
