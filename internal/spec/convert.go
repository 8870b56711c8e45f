package spec

import (
    "sort"

    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi2conv"
    "github.com/getkin/kin-openapi/openapi3"
)

// fromV3 converts an OpenAPI 3 document down to Swagger 2. openapi2conv sorts
// every parameter list by name; the declared order is restored here and the
// converted request body (body or formData parameters) is placed first, so the
// parameter inspected for examples never depends on how other parameters are
// named.
func fromV3(doc3 *openapi3.T) (*openapi2.T, error) {
    doc, err := openapi2conv.FromV3(doc3)
    if err != nil {
        return nil, err
    }
    for path, item2 := range doc.Paths {
        item3 := doc3.Paths[path]
        if item2 == nil || item3 == nil {
            continue
        }
        restoreParameterOrder(doc, item2.Parameters, item3.Parameters)
        for method, op2 := range item2.Operations() {
            op3 := item3.GetOperation(method)
            if op2 == nil || op3 == nil {
                continue
            }
            restoreParameterOrder(doc, op2.Parameters, op3.Parameters)
        }
    }
    return doc, nil
}

// restoreParameterOrder sorts params in place: request body parameters first,
// then declared parameters in declaration order, then anything unmatched.
func restoreParameterOrder(doc *openapi2.T, params openapi2.Parameters, declared openapi3.Parameters) {
    if len(params) < 2 {
        return
    }
    rank := make(map[string]int, len(declared))
    for i, ref := range declared {
        if ref == nil || ref.Value == nil {
            continue
        }
        rank[paramKey(ref.Value.In, ref.Value.Name)] = i
    }
    pos := func(p *openapi2.Parameter) int {
        in, name := resolvedLocation(doc, p)
        if in == InBody || in == InFormData {
            return -1
        }
        if i, ok := rank[paramKey(in, name)]; ok {
            return i
        }
        return len(declared)
    }
    sort.SliceStable(params, func(i, j int) bool { return pos(params[i]) < pos(params[j]) })
}

func resolvedLocation(doc *openapi2.T, p *openapi2.Parameter) (in, name string) {
    if p == nil {
        return "", ""
    }
    if p.Ref != "" {
        if target, ok := doc.Parameters[SimpleRef(p.Ref)]; ok && target != nil {
            p = target
        }
    }
    return p.In, p.Name
}
