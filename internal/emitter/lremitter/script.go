package lremitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foragerr/swagger2loadtest/internal/naming"
	"github.com/foragerr/swagger2loadtest/internal/preprocess"
	"github.com/foragerr/swagger2loadtest/internal/spec"
	"github.com/foragerr/swagger2loadtest/internal/typedecl"
)

const (
	defaultGroup   = "default"
	formEncType    = "application/x-www-form-urlencoded"
	baseURLParam   = "BaseURL"
	actionFileName = "Action.c"
)

type scriptData struct {
	ScriptName string
	Title      string
	Version    string
	BaseURL    string
	Groups     []groupData
}

type groupData struct {
	Tag      string
	Func     string
	File     string
	Requests []requestData
}

type requestData struct {
	Transaction string
	ID          string
	Summary     string
	Method      string
	URL         string
	EncType     string
	Body        string // C literal, already quoted
	Headers     []headerData
	Params      []paramData
}

type headerData struct {
	Name  string
	Value string
}

type paramData struct {
	Name     string
	In       string
	Type     string
	Required bool
}

func buildScript(doc *spec.Document, meta preprocess.Metadata, resolver *typedecl.Resolver, opts Options, scriptName, baseURL string) scriptData {
	data := scriptData{
		ScriptName: scriptName,
		Title:      oneLine(doc.Title),
		Version:    oneLine(doc.Version),
		BaseURL:    baseURL,
	}

	byFunc := map[string]*groupData{}
	used := map[string]struct{}{}
	for i := range doc.Operations {
		op := &doc.Operations[i]
		tag := defaultGroup
		if len(op.Tags) > 0 && strings.TrimSpace(op.Tags[0]) != "" {
			tag = op.Tags[0]
		}
		fn := groupFunc(tag, opts.Namer)
		g, ok := byFunc[fn]
		if !ok {
			g = &groupData{Tag: oneLine(tag), Func: fn, File: fn + ".c"}
			byFunc[fn] = g
		}
		g.Requests = append(g.Requests, buildRequest(doc, op, meta, resolver, opts, used))
	}

	funcs := make([]string, 0, len(byFunc))
	for fn := range byFunc {
		funcs = append(funcs, fn)
	}
	sort.Strings(funcs)
	for _, fn := range funcs {
		data.Groups = append(data.Groups, *byFunc[fn])
	}
	return data
}

func buildRequest(doc *spec.Document, op *spec.Operation, meta preprocess.Metadata, resolver *typedecl.Resolver, opts Options, used map[string]struct{}) requestData {
	req := requestData{
		Transaction: transactionName(op, used),
		ID:          op.ID,
		Summary:     oneLine(op.Summary),
		Method:      strings.ToUpper(string(op.Method)),
	}

	var query, form []string
	for _, p := range op.AllParameters() {
		req.Params = append(req.Params, paramData{
			Name:     p.Name,
			In:       p.In,
			Type:     resolver.Declare(p.Schema),
			Required: p.Required,
		})
		switch p.In {
		case spec.InQuery:
			query = append(query, p.Name+"={"+p.Name+"}")
		case spec.InHeader:
			req.Headers = append(req.Headers, headerData{Name: cString(p.Name), Value: cString("{" + p.Name + "}")})
		case spec.InFormData:
			form = append(form, p.Name+"={"+p.Name+"}")
		}
	}

	url := "{" + baseURLParam + "}" + joinPath(doc.BasePath, op.Path)
	if len(query) > 0 {
		url += "?" + strings.Join(query, "&")
	}
	req.URL = cString(url)

	if ct, literal, ok := meta.First(op.ID, bodyContentTypes(op, opts.ContentTypes)); ok {
		req.EncType = cString(ct)
		req.Body = literal
	} else if len(form) > 0 {
		req.EncType = formEncType
		req.Body = `"` + cString(strings.Join(form, "&")) + `"`
	}
	return req
}

// bodyContentTypes lists the operation's own consumes first, then the
// configured preference, without duplicates.
func bodyContentTypes(op *spec.Operation, preferred []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range [][]string{op.Consumes, preferred} {
		for _, ct := range list {
			if _, ok := seen[ct]; ok {
				continue
			}
			seen[ct] = struct{}{}
			out = append(out, ct)
		}
	}
	return out
}

// transactionName is the operationId, or method_path, as a C identifier.
// Repeated names get the first numeric suffix not already in use.
func transactionName(op *spec.Operation, used map[string]struct{}) string {
	name := strings.TrimSpace(op.OperationID)
	if name == "" {
		name = string(op.Method) + "_" + op.Path
	}
	base := cIdent(name)
	name = base
	for n := 2; ; n++ {
		if _, taken := used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = struct{}{}
	return name
}

var cKeywords = map[string]struct{}{
	"auto": {}, "break": {}, "case": {}, "char": {}, "const": {}, "continue": {},
	"default": {}, "do": {}, "double": {}, "else": {}, "enum": {}, "extern": {},
	"float": {}, "for": {}, "goto": {}, "if": {}, "int": {}, "long": {},
	"register": {}, "return": {}, "short": {}, "signed": {}, "sizeof": {}, "static": {},
	"struct": {}, "switch": {}, "typedef": {}, "union": {}, "unsigned": {}, "void": {},
	"volatile": {}, "while": {},
}

// entryPoints are the functions and files every script defines.
var entryPoints = []string{"vuser_init", "vuser_end", "Action", "globals"}

// groupFunc names the action function of a tag. C keywords, reserved words
// and the script's own entry points are escaped.
func groupFunc(tag string, namer *naming.Normalizer) string {
	fn := cIdent(tag)
	_, keyword := cKeywords[fn]
	if keyword || namer.IsReserved(fn) || isEntryPoint(fn) {
		fn = naming.EscapeReservedWord(fn)
	}
	return fn
}

// isEntryPoint ignores case so group files never shadow script files on
// case-insensitive file systems.
func isEntryPoint(fn string) bool {
	for _, e := range entryPoints {
		if strings.EqualFold(fn, e) {
			return true
		}
	}
	return false
}

// cIdent replaces every character that is not valid in a C identifier with
// an underscore.
func cIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return defaultGroup
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

func joinPath(basePath, path string) string {
	basePath = strings.TrimRight(strings.TrimSpace(basePath), "/")
	if path == "" {
		return basePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return basePath + path
}

// cString escapes s for use between double quotes in C source.
func cString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
