package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foragerr/swagger2loadtest/internal/example"
	"github.com/foragerr/swagger2loadtest/internal/spec"
)

// stubGenerator returns canned records per model and records every call.
type stubGenerator struct {
	mu      sync.Mutex
	records map[string][]example.Record
	calls   []string
	panicOn string
}

func (g *stubGenerator) Generate(model string, contentTypes []string) []example.Record {
	g.mu.Lock()
	g.calls = append(g.calls, model)
	g.mu.Unlock()
	if g.panicOn != "" && model == g.panicOn {
		panic("boom")
	}
	var out []example.Record
	for _, ct := range contentTypes {
		for _, r := range g.records[model] {
			if r.ContentType == ct {
				out = append(out, r)
			}
		}
	}
	return out
}

func bodyOp(id string, schema spec.SchemaType) spec.Operation {
	return spec.Operation{
		ID:     id,
		Method: spec.POST,
		Parameters: []spec.Parameter{
			{Name: "body", In: spec.InBody, Schema: schema},
		},
	}
}

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line", `{"id":1}`, `"{\"id\":1}"`},
		{"two lines", "{\n}", "\"{\"\t\t\t\"}\""},
		{"existing quote", `say "hi"`, `"say \"hi\""`},
		{"blank line kept bare", "a\n\nb", "\"a\"\t\t\t\t\t\t\"b\""},
		{"trailing newline", "a\n", "\"a\"\t\t\t"},
		{"carriage return", "a\r\nb", "\"a\"\r\t\t\t\"b\""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatLiteral(tt.in))
		})
	}
}

func TestFormatLiteralMultiLineJSON(t *testing.T) {
	got := FormatLiteral("{\n}")
	require.Equal(t, 1, strings.Count(got, "\t\t\t"))
	require.NotContains(t, got, "\n")
	parts := strings.Split(got, "\t\t\t")
	require.Equal(t, []string{`"{"`, `"}"`}, parts)
}

func TestFormatLiteralEscapesOnce(t *testing.T) {
	got := FormatLiteral(`"`)
	require.Equal(t, `"\""`, got)
	require.Equal(t, 1, strings.Count(got, `\`))

	// Inside the wrapping quotes every quote is preceded by exactly one backslash.
	inner := got[1 : len(got)-1]
	for i := 0; i < len(inner); i++ {
		if inner[i] == '"' {
			require.True(t, i > 0 && inner[i-1] == '\\')
			require.False(t, i > 1 && inner[i-2] == '\\')
		}
	}
}

func TestExtensionKey(t *testing.T) {
	require.Equal(t, "x-request-example-application/json", ExtensionKey(example.ContentTypeJSON))
}

func TestRun(t *testing.T) {
	gen := &stubGenerator{records: map[string][]example.Record{
		"Order": {{ContentType: example.ContentTypeJSON, Text: `{"id":1}`}},
		"Pet": {
			{ContentType: example.ContentTypeJSON, Text: "{\n  \"name\": \"doggie\"\n}"},
			{ContentType: example.ContentTypeXML, Text: "<Pet>\n</Pet>"},
		},
	}}
	doc := &spec.Document{Operations: []spec.Operation{
		{ID: "get /none", Method: spec.GET},
		bodyOp("post /order", spec.Reference{Model: "Order"}),
		bodyOp("post /pets", spec.Array{Items: spec.Reference{Model: "Pet"}}),
		{ID: "get /query", Method: spec.GET, Parameters: []spec.Parameter{
			{Name: "q", In: spec.InQuery, Schema: spec.Primitive{Name: "string"}},
			{Name: "body", In: spec.InBody, Schema: spec.Reference{Model: "Order"}},
		}},
		bodyOp("post /raw", spec.Primitive{Name: "string"}),
	}}

	meta := Run(context.Background(), doc, gen)

	require.Nil(t, meta.For("get /none"))
	require.Nil(t, meta.For("get /query"))
	require.Nil(t, meta.For("post /raw"))

	v, ok := meta.Example("post /order", example.ContentTypeJSON)
	require.True(t, ok)
	require.Equal(t, `"{\"id\":1}"`, v)
	_, ok = meta.Example("post /order", example.ContentTypeXML)
	require.False(t, ok)

	pets := meta.For("post /pets")
	require.Len(t, pets, 2)
	require.Equal(t, "\"{\"\t\t\t\"  \\\"name\\\": \\\"doggie\\\"\"\t\t\t\"}\"", pets[ExtensionKey(example.ContentTypeJSON)])
	require.Equal(t, "\"<Pet>\"\t\t\t\"</Pet>\"", pets[ExtensionKey(example.ContentTypeXML)])

	// The non-body operations never reach the generator; the primitive body
	// asks for the empty model.
	require.ElementsMatch(t, []string{"Order", "Pet", ""}, gen.calls)
}

func TestRunNilParameters(t *testing.T) {
	doc := &spec.Document{Operations: []spec.Operation{{ID: "get /x", Parameters: nil}}}
	meta := Run(context.Background(), doc, &stubGenerator{})
	require.Empty(t, meta)
}

func TestRunIgnoresInheritedPathParameters(t *testing.T) {
	gen := &stubGenerator{records: map[string][]example.Record{
		"Order": {{ContentType: example.ContentTypeJSON, Text: "{}"}},
	}}
	doc := &spec.Document{Operations: []spec.Operation{{
		ID:     "post /orders",
		Method: spec.POST,
		PathParameters: []spec.Parameter{
			{Name: "body", In: spec.InBody, Schema: spec.Reference{Model: "Order"}},
		},
	}}}

	meta := Run(context.Background(), doc, gen)
	require.Empty(t, meta)
	require.Empty(t, gen.calls)
}

const openAPI3Orders = `openapi: 3.0.0
info:
  title: Orders
  version: "1.0.0"
paths:
  /orders:
    post:
      parameters:
        - in: header
          name: x_trace
          schema:
            type: string
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Order"
      responses:
        "200":
          description: ok
  /other:
    post:
      parameters:
        - in: header
          name: api_key
          schema:
            type: string
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Order"
      responses:
        "200":
          description: ok
components:
  schemas:
    Order:
      type: object
      properties:
        id:
          type: integer
`

func TestRunConvertedOpenAPI3IgnoresParameterNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(openAPI3Orders), 0o600))

	raw, err := spec.Load(context.Background(), path)
	require.NoError(t, err)
	doc, err := spec.BuildDocument(context.Background(), raw)
	require.NoError(t, err)

	meta := Run(context.Background(), doc, example.New(doc.Models), WithContentTypes(example.ContentTypeJSON))

	for _, id := range []string{"post /orders", "post /other"} {
		var op *spec.Operation
		for i := range doc.Operations {
			if doc.Operations[i].ID == id {
				op = &doc.Operations[i]
			}
		}
		require.NotNil(t, op, id)
		require.Len(t, op.Parameters, 2, id)
		require.Equal(t, spec.InBody, op.Parameters[0].In, id)
		require.Equal(t, spec.InHeader, op.Parameters[1].In, id)

		v, ok := meta.Example(id, example.ContentTypeJSON)
		require.True(t, ok, id)
		require.True(t, strings.HasPrefix(v, "\"{\"\t\t\t"), v)
		require.Contains(t, v, `\"id\": `, id)
	}
}

func TestRunNilInputs(t *testing.T) {
	require.Empty(t, Run(context.Background(), nil, &stubGenerator{}))
	require.Empty(t, Run(context.Background(), &spec.Document{}, nil))
}

func TestRunIsolatesPanics(t *testing.T) {
	var logs bytes.Buffer
	gen := &stubGenerator{
		panicOn: "Bad",
		records: map[string][]example.Record{
			"Good": {{ContentType: example.ContentTypeJSON, Text: "{}"}},
		},
	}
	doc := &spec.Document{Operations: []spec.Operation{
		bodyOp("post /bad", spec.Reference{Model: "Bad"}),
		bodyOp("post /good", spec.Reference{Model: "Good"}),
	}}

	meta := Run(context.Background(), doc, gen, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	require.Nil(t, meta.For("post /bad"))
	v, ok := meta.Example("post /good", example.ContentTypeJSON)
	require.True(t, ok)
	require.Equal(t, `"{}"`, v)
	require.Contains(t, logs.String(), "example generation failed")
	require.Contains(t, logs.String(), "post /bad")
}

func TestRunContentTypeOrder(t *testing.T) {
	gen := &stubGenerator{records: map[string][]example.Record{
		"Order": {
			{ContentType: example.ContentTypeJSON, Text: "{}"},
			{ContentType: example.ContentTypeXML, Text: "<Order/>"},
		},
	}}
	doc := &spec.Document{Operations: []spec.Operation{bodyOp("post /order", spec.Reference{Model: "Order"})}}

	meta := Run(context.Background(), doc, gen, WithContentTypes(example.ContentTypeXML))
	require.Len(t, meta.For("post /order"), 1)

	ct, lit, ok := meta.First("post /order", []string{example.ContentTypeJSON, example.ContentTypeXML})
	require.True(t, ok)
	require.Equal(t, example.ContentTypeXML, ct)
	require.Equal(t, `"<Order/>"`, lit)
}

func TestRunIdempotent(t *testing.T) {
	doc, gen := largeDocument(40)
	first := Run(context.Background(), doc, gen)
	second := Run(context.Background(), doc, gen)
	require.Equal(t, first, second)
	require.Len(t, first, 40)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	doc, gen := largeDocument(200)
	seq := Run(context.Background(), doc, gen)
	par := Run(context.Background(), doc, gen, WithWorkers(8))
	require.Equal(t, seq, par)
}

func TestRunCancelled(t *testing.T) {
	doc, gen := largeDocument(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, Run(ctx, doc, gen))
	require.Empty(t, Run(ctx, doc, gen, WithWorkers(4)))
}

func TestRunWithRealGenerator(t *testing.T) {
	models := map[string]*spec.Model{
		"Order": {Name: "Order", Properties: []spec.Property{
			{Name: "id", Type: spec.Primitive{Name: "integer"}},
		}},
	}
	doc := &spec.Document{Models: models, Operations: []spec.Operation{
		bodyOp("post /order", spec.Reference{Model: "Order"}),
		bodyOp("post /anon", spec.Primitive{Name: "object"}),
	}}

	meta := Run(context.Background(), doc, example.New(models))

	v, ok := meta.Example("post /order", example.ContentTypeJSON)
	require.True(t, ok)
	require.Equal(t, "\"{\"\t\t\t\"  \\\"id\\\": 123\"\t\t\t\"}\"", v)
	x, ok := meta.Example("post /order", example.ContentTypeXML)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(x, `"<?xml version=\"1.0\" encoding=\"UTF-8\"?>"`))

	// No model: generic JSON, no XML.
	anon := meta.For("post /anon")
	require.Equal(t, map[string]string{ExtensionKey(example.ContentTypeJSON): `"{}"`}, anon)
}

func largeDocument(n int) (*spec.Document, *stubGenerator) {
	gen := &stubGenerator{records: map[string][]example.Record{}}
	doc := &spec.Document{}
	for i := 0; i < n; i++ {
		model := fmt.Sprintf("M%d", i)
		gen.records[model] = []example.Record{
			{ContentType: example.ContentTypeJSON, Text: fmt.Sprintf("{\n  \"n\": %d\n}", i)},
		}
		doc.Operations = append(doc.Operations, bodyOp("post /"+model, spec.Reference{Model: model}))
	}
	return doc, gen
}
