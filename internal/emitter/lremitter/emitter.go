// Package lremitter renders a LoadRunner web (HTTP/HTML) script from a
// document, its preprocessed example bodies and a type resolver.
package lremitter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foragerr/swagger2loadtest/internal/example"
	"github.com/foragerr/swagger2loadtest/internal/naming"
	"github.com/foragerr/swagger2loadtest/internal/preprocess"
	"github.com/foragerr/swagger2loadtest/internal/spec"
	"github.com/foragerr/swagger2loadtest/internal/typedecl"
)

// Options controls how a script is rendered.
type Options struct {
	OutDir       string   // required; target directory of the script
	ScriptName   string   // script name; derived from the document title when empty
	BaseURL      string   // saved into {BaseURL}; derived from schemes+host when empty
	ContentTypes []string // body content-type preference after the operation's consumes
	Namer        *naming.Normalizer
	Logger       *slog.Logger
	Force        bool // overwrite existing files
	DryRun       bool // don't write, only plan
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and final resolved names.
type Result struct {
	ScriptName string
	BaseURL    string
	Groups     []string
	Planned    []PlannedFile
}

const defaultScriptName = "loadtest-script"

// Emit renders the script files. Every operation becomes one
// web_custom_request inside the action file of its first tag.
func Emit(ctx context.Context, doc *spec.Document, meta preprocess.Metadata, resolver *typedecl.Resolver, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("lremitter: nil Document")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("lremitter: OutDir is required")
	}
	if resolver == nil {
		resolver = typedecl.NewResolver(nil, opts.Namer)
	}
	if opts.Namer == nil {
		opts.Namer = naming.New(nil)
	}
	if len(opts.ContentTypes) == 0 {
		opts.ContentTypes = example.DefaultContentTypes
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scriptName := ResolveScriptName(opts.ScriptName, doc.Title)
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = deriveBaseURL(doc)
	}

	data := buildScript(doc, meta, resolver, opts, scriptName, baseURL)

	files := map[string][]byte{}
	for _, g := range data.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, clash := scriptTemplates[g.File]; clash {
			return nil, fmt.Errorf("lremitter: group %q file %s collides with a script file", g.Tag, g.File)
		}
		out, err := render(actionTmpl, g)
		if err != nil {
			return nil, fmt.Errorf("lremitter: render %s: %w", g.File, err)
		}
		files[g.File] = out
	}
	for name, tmpl := range scriptTemplates {
		out, err := render(tmpl, data)
		if err != nil {
			return nil, fmt.Errorf("lremitter: render %s: %w", name, err)
		}
		files[name] = out
	}

	// Plan in deterministic order
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("lremitter: resolve output directory: %w", err)
	}
	if err := validateOutputDirectory(abs, opts.Force); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		for _, rel := range rels {
			if err := writeFileAtomic(abs, rel, files[rel]); err != nil {
				return nil, fmt.Errorf("lremitter: write file %s: %w", rel, err)
			}
			log.Debug("wrote file", "path", rel, "bytes", len(files[rel]))
		}
	}

	groups := make([]string, 0, len(data.Groups))
	for _, g := range data.Groups {
		groups = append(groups, g.Func)
	}
	return &Result{ScriptName: scriptName, BaseURL: baseURL, Groups: groups, Planned: planned}, nil
}

// ResolveScriptName sanitizes name, falling back to a name derived from the
// document title and then to a fixed default.
func ResolveScriptName(name, title string) string {
	if out := sanitizeScriptName(name); out != "" {
		return out
	}
	if out := deriveScriptName(title); out != "" {
		return out
	}
	return defaultScriptName
}

func sanitizeScriptName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// replace spaces and slashes
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ToLower(name)
	// keep alnum, dash, underscore only
	b := strings.Builder{}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

func deriveScriptName(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return ""
	}
	// split on spaces and punctuation, join with dash
	t = strings.ToLower(t)
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	parts := strings.Fields(repl.Replace(t))
	if len(parts) == 0 {
		return ""
	}
	return sanitizeScriptName(strings.Join(parts, "-"))
}

// deriveBaseURL prefers https, then the first declared scheme, then http.
func deriveBaseURL(doc *spec.Document) string {
	host := strings.TrimSpace(doc.Host)
	if host == "" {
		return ""
	}
	scheme := "http"
	if len(doc.Schemes) > 0 {
		scheme = doc.Schemes[0]
		for _, s := range doc.Schemes {
			if s == "https" {
				scheme = s
				break
			}
		}
	}
	return scheme + "://" + host
}
