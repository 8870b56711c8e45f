// Package example synthesizes representative request payloads for named models.
//
// Values are picked per property: the schema example wins, then the first enum
// value, then a fixed default for the primitive type. Arrays carry one item and
// maps carry a single "key" entry. A model that is re-entered while it is
// already being rendered collapses to an empty object, so self-referencing
// models terminate.
package example

import (
	"mime"
	"strings"

	"github.com/foragerr/swagger2loadtest/internal/spec"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
)

// DefaultContentTypes is the negotiation order used when none is configured.
var DefaultContentTypes = []string{ContentTypeJSON, ContentTypeXML}

// Record is one serialized example for one content type.
type Record struct {
	ContentType string
	Text        string
}

// Generator renders examples from a read-only model store. It is safe for
// concurrent use.
type Generator struct {
	models map[string]*spec.Model
}

// New returns a Generator over models, keyed by definition name.
func New(models map[string]*spec.Model) *Generator {
	if models == nil {
		models = map[string]*spec.Model{}
	}
	return &Generator{models: models}
}

// Generate returns one record per content type it can satisfy, in the order the
// content types were given. Duplicate and unsupported content types are skipped.
func (g *Generator) Generate(model string, contentTypes []string) []Record {
	var out []Record
	done := make(map[string]struct{}, len(contentTypes))
	for _, ct := range contentTypes {
		if _, dup := done[ct]; dup {
			continue
		}
		done[ct] = struct{}{}

		var (
			text string
			ok   bool
		)
		switch formatOf(ct) {
		case formatJSON:
			text, ok = g.jsonExample(model)
		case formatXML:
			text, ok = g.xmlExample(model)
		}
		if ok {
			out = append(out, Record{ContentType: ct, Text: text})
		}
	}
	return out
}

type format int

const (
	formatNone format = iota
	formatJSON
	formatXML
)

// formatOf classifies a media type; "application/problem+json" counts as JSON
// and "text/xml" as XML.
func formatOf(contentType string) format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return formatNone
	}
	_, sub, found := strings.Cut(mt, "/")
	if !found {
		return formatNone
	}
	switch {
	case sub == "json" || strings.HasSuffix(sub, "+json"):
		return formatJSON
	case sub == "xml" || strings.HasSuffix(sub, "+xml"):
		return formatXML
	}
	return formatNone
}

func (g *Generator) lookup(name string) *spec.Model {
	if name == "" {
		return nil
	}
	return g.models[name]
}
