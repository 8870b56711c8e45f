// Package preprocess attaches formatted example request bodies to operations
// before the script is rendered.
//
// Only the first parameter of an operation is inspected. When it is a body
// parameter its schema is resolved to one model (the reference itself or the
// item reference of an array body), examples are generated for the configured
// content types and each one is stored under ExtensionKey(contentType).
package preprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/foragerr/swagger2loadtest/internal/example"
	"github.com/foragerr/swagger2loadtest/internal/spec"
)

// Generator produces serialized examples for a model, one per content type it
// can satisfy.
type Generator interface {
	Generate(model string, contentTypes []string) []example.Record
}

type settings struct {
	contentTypes []string
	workers      int
	logger       *slog.Logger
}

type Option func(*settings)

// WithContentTypes sets the ordered content types requested from the
// generator. An empty list keeps the default.
func WithContentTypes(cts ...string) Option {
	return func(s *settings) {
		if len(cts) > 0 {
			s.contentTypes = slices.Clone(cts)
		}
	}
}

// WithWorkers processes up to n operations concurrently. n <= 1 is sequential.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Run walks every operation of doc and returns the formatted examples keyed by
// operation ID. It never fails: an operation without a body, or whose
// generator call panics, simply has no entry. Cancelling ctx stops new
// operations from being started.
func Run(ctx context.Context, doc *spec.Document, gen Generator, opts ...Option) Metadata {
	s := settings{
		contentTypes: slices.Clone(example.DefaultContentTypes),
		workers:      1,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(&s)
	}

	meta := Metadata{}
	if doc == nil || gen == nil {
		return meta
	}

	p := &processor{gen: gen, contentTypes: s.contentTypes, log: s.logger}
	results := make([]map[string]string, len(doc.Operations))

	if s.workers <= 1 {
		for i := range doc.Operations {
			if ctx.Err() != nil {
				break
			}
			results[i] = p.operation(&doc.Operations[i])
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i := range doc.Operations {
			if gctx.Err() != nil {
				break
			}
			i := i
			g.Go(func() error {
				results[i] = p.operation(&doc.Operations[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, r := range results {
		if len(r) > 0 {
			meta[doc.Operations[i].ID] = r
		}
	}
	return meta
}

type processor struct {
	gen          Generator
	contentTypes []string
	log          *slog.Logger
}

// operation returns the metadata for one operation, or nil. A panic inside the
// generator is contained here so sibling operations are unaffected.
func (p *processor) operation(op *spec.Operation) (out map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("example generation failed", "operation", op.ID, "error", fmt.Sprint(r))
			out = nil
		}
	}()

	if len(op.Parameters) == 0 {
		p.log.Debug("no example", "operation", op.ID, "reason", "no parameters")
		return nil
	}
	first := op.Parameters[0]
	if !first.IsBody() {
		p.log.Debug("no example", "operation", op.ID, "reason", "first parameter is not a body", "parameter", first.Name)
		return nil
	}

	model := spec.BodyModel(first.Schema)
	if model == "" {
		p.log.Debug("body schema has no named model", "operation", op.ID)
	}

	records := p.gen.Generate(model, p.contentTypes)
	if len(records) == 0 {
		return nil
	}
	out = make(map[string]string, len(records))
	for _, rec := range records {
		out[ExtensionKey(rec.ContentType)] = FormatLiteral(rec.Text)
	}
	return out
}
