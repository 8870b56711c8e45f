package lremitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foragerr/swagger2loadtest/internal/naming"
	"github.com/foragerr/swagger2loadtest/internal/preprocess"
	"github.com/foragerr/swagger2loadtest/internal/spec"
	"github.com/foragerr/swagger2loadtest/internal/typedecl"
)

func minimalDocument() *spec.Document {
	return &spec.Document{
		Title:    "Sample API",
		Version:  "1.0.0",
		Host:     "api.example.com",
		BasePath: "/v2",
		Schemes:  []string{"http", "https"},
		Operations: []spec.Operation{
			{
				ID: "post /pet", OperationID: "addPet", Method: spec.POST, Path: "/pet",
				Summary: "Add a pet", Tags: []string{"pet"},
				Parameters: []spec.Parameter{
					{Name: "body", In: spec.InBody, Required: true, Schema: spec.Reference{Model: "Pet"}},
				},
			},
			{
				ID: "get /pet/{petId}", Method: spec.GET, Path: "/pet/{petId}", Tags: []string{"pet"},
				Parameters: []spec.Parameter{
					{Name: "petId", In: spec.InPath, Required: true, Schema: spec.Primitive{Name: "long"}},
					{Name: "fields", In: spec.InQuery, Schema: spec.Array{Items: spec.Primitive{Name: "string"}}},
					{Name: "api_key", In: spec.InHeader, Schema: spec.Primitive{Name: "string"}},
				},
			},
			{
				ID: "post /login", OperationID: "login", Method: spec.POST, Path: "/login",
				Parameters: []spec.Parameter{
					{Name: "user", In: spec.InFormData, Required: true, Schema: spec.Primitive{Name: "string"}},
					{Name: "pass", In: spec.InFormData, Required: true, Schema: spec.Primitive{Name: "string"}},
				},
			},
		},
	}
}

func minimalMetadata() preprocess.Metadata {
	return preprocess.Metadata{
		"post /pet": {
			preprocess.ExtensionKey("application/json"): "\"{\"\t\t\t\"  \\\"id\\\": 1\"\t\t\t\"}\"",
			preprocess.ExtensionKey("application/xml"):  "\"<Pet>\"\t\t\t\"</Pet>\"",
		},
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	res, err := Emit(ctx, minimalDocument(), minimalMetadata(), typedecl.NewResolver(nil, nil), Options{
		OutDir: dir,
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.ScriptName != "sample-api" {
		t.Fatalf("script name = %q", res.ScriptName)
	}
	if res.BaseURL != "https://api.example.com" {
		t.Fatalf("base url = %q", res.BaseURL)
	}
	want := []string{"Action.c", "_default.c", "globals.h", "pet.c", "vuser_end.c", "vuser_init.c"}
	if len(res.Planned) != len(want) {
		t.Fatalf("planned %d files, want %d: %+v", len(res.Planned), len(want), res.Planned)
	}
	for i, p := range want {
		if res.Planned[i].RelPath != p {
			t.Fatalf("planned[%d] = %s, want %s", i, res.Planned[i].RelPath, p)
		}
	}
	if got := strings.Join(res.Groups, ","); got != "_default,pet" {
		t.Fatalf("groups = %s", got)
	}
	// Dry-run should not have written files
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Emit(ctx, minimalDocument(), minimalMetadata(), nil, Options{OutDir: dir, Force: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	pet := readFile(t, filepath.Join(dir, "pet.c"))
	wantPet := `pet()
{

	// post /pet: Add a pet
	// body body (required): Pet
	lr_start_transaction("addPet");

	web_custom_request("addPet",
		"URL={BaseURL}/v2/pet",
		"Method=POST",
		"Resource=0",
		"EncType=application/json",
		"Mode=HTTP",
		"Body="
		"{"			"  \"id\": 1"			"}",
		LAST);

	lr_end_transaction("addPet", LR_AUTO);

	// get /pet/{petId}
	// path petId (required): Long
	// query fields: List[String]
	// header api_key: String
	lr_start_transaction("get__pet__petId");
	web_add_header("api_key", "{api_key}");

	web_custom_request("get__pet__petId",
		"URL={BaseURL}/v2/pet/{petId}?fields={fields}",
		"Method=GET",
		"Resource=0",
		"Mode=HTTP",
		LAST);

	lr_end_transaction("get__pet__petId", LR_AUTO);

	return 0;
}
`
	if pet != wantPet {
		t.Fatalf("pet.c mismatch:\n%s", pet)
	}

	login := readFile(t, filepath.Join(dir, "_default.c"))
	if !strings.Contains(login, `"EncType=application/x-www-form-urlencoded",`) {
		t.Fatalf("_default.c missing form enctype:\n%s", login)
	}
	if !strings.Contains(login, `"user={user}&pass={pass}",`) {
		t.Fatalf("_default.c missing form body:\n%s", login)
	}

	action := readFile(t, filepath.Join(dir, "Action.c"))
	if action != "Action()\n{\n\t_default();\n\tpet();\n\treturn 0;\n}\n" {
		t.Fatalf("Action.c mismatch:\n%s", action)
	}

	vinit := readFile(t, filepath.Join(dir, "vuser_init.c"))
	if !strings.Contains(vinit, `lr_save_string("https://api.example.com", "BaseURL");`) {
		t.Fatalf("vuser_init.c missing BaseURL:\n%s", vinit)
	}

	globals := readFile(t, filepath.Join(dir, "globals.h"))
	for _, want := range []string{"#include \"web_api.h\"", "// Script sample-api for Sample API 1.0.0", "int _default();", "int pet();"} {
		if !strings.Contains(globals, want) {
			t.Fatalf("globals.h missing %q:\n%s", want, globals)
		}
	}
}

func TestEmit_ConsumesPreferred(t *testing.T) {
	t.Parallel()
	doc := minimalDocument()
	doc.Operations[0].Consumes = []string{"application/xml"}
	dir := t.TempDir()

	if _, err := Emit(context.Background(), doc, minimalMetadata(), nil, Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	pet := readFile(t, filepath.Join(dir, "pet.c"))
	if !strings.Contains(pet, `"EncType=application/xml",`) || !strings.Contains(pet, `"<Pet>"`) {
		t.Fatalf("expected xml body:\n%s", pet)
	}
}

func TestEmit_NoBaseURL(t *testing.T) {
	t.Parallel()
	doc := minimalDocument()
	doc.Host = ""
	dir := t.TempDir()

	res, err := Emit(context.Background(), doc, nil, nil, Options{OutDir: dir, ScriptName: "My Script"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.ScriptName != "my-script" || res.BaseURL != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	vinit := readFile(t, filepath.Join(dir, "vuser_init.c"))
	if strings.Contains(vinit, "lr_save_string") {
		t.Fatalf("vuser_init.c should not save BaseURL:\n%s", vinit)
	}
}

func TestEmit_ReservedGroupNames(t *testing.T) {
	t.Parallel()
	doc := &spec.Document{Operations: []spec.Operation{
		{ID: "get /a", Method: spec.GET, Path: "/a", Tags: []string{"Action"}},
		{ID: "get /b", Method: spec.GET, Path: "/b", Tags: []string{"vuser_init"}},
		{ID: "get /c", Method: spec.GET, Path: "/c", Tags: []string{"2fa codes"}},
	}}
	res, err := Emit(context.Background(), doc, nil, nil, Options{OutDir: t.TempDir(), DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := strings.Join(res.Groups, ","); got != "_2fa_codes,_Action,_vuser_init" {
		t.Fatalf("groups = %s", got)
	}
}

func TestEmit_EntryPointGroupsWithCustomReservedWords(t *testing.T) {
	t.Parallel()
	doc := &spec.Document{Operations: []spec.Operation{
		{ID: "get /a", OperationID: "initUser", Method: spec.GET, Path: "/a", Tags: []string{"vuser_init"}},
		{ID: "get /b", OperationID: "endUser", Method: spec.GET, Path: "/b", Tags: []string{"VUSER_END"}},
		{ID: "get /c", OperationID: "globalState", Method: spec.GET, Path: "/c", Tags: []string{"globals"}},
	}}
	dir := t.TempDir()
	res, err := Emit(context.Background(), doc, nil, nil, Options{OutDir: dir, Namer: naming.New([]string{"Foo"})})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := strings.Join(res.Groups, ","); got != "_VUSER_END,_globals,_vuser_init" {
		t.Fatalf("groups = %s", got)
	}
	if out := readFile(t, filepath.Join(dir, "_vuser_init.c")); !strings.Contains(out, `lr_start_transaction("initUser");`) {
		t.Fatalf("_vuser_init.c should hold the tagged request:\n%s", out)
	}
	if out := readFile(t, filepath.Join(dir, "vuser_init.c")); strings.Contains(out, "web_custom_request") {
		t.Fatalf("vuser_init.c was overwritten by a group:\n%s", out)
	}
}

func TestEmit_DuplicateTransactions(t *testing.T) {
	t.Parallel()
	doc := &spec.Document{Operations: []spec.Operation{
		{ID: "get /a", OperationID: "fetch", Method: spec.GET, Path: "/a"},
		{ID: "get /b", OperationID: "fetch", Method: spec.GET, Path: "/b"},
		{ID: "get /c", OperationID: "fetch_2", Method: spec.GET, Path: "/c"},
	}}
	dir := t.TempDir()
	if _, err := Emit(context.Background(), doc, nil, nil, Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	out := readFile(t, filepath.Join(dir, "_default.c"))
	for _, name := range []string{"fetch", "fetch_2", "fetch_2_2"} {
		if strings.Count(out, `lr_start_transaction("`+name+`");`) != 1 {
			t.Fatalf("expected exactly one %s transaction:\n%s", name, out)
		}
	}
}

func TestEmit_NoForce_NonEmptyDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	// create a file to make directory non-empty
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	_, err := Emit(ctx, minimalDocument(), nil, nil, Options{OutDir: dir})
	if err == nil {
		t.Fatalf("expected error on non-empty dir without force")
	}
}

func TestEmit_RequiresInputs(t *testing.T) {
	t.Parallel()
	if _, err := Emit(context.Background(), nil, nil, nil, Options{OutDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for nil document")
	}
	if _, err := Emit(context.Background(), minimalDocument(), nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for missing OutDir")
	}
}

func TestCString(t *testing.T) {
	t.Parallel()
	if got := cString(`a"b\c` + "\n"); got != `a\"b\\c\n` {
		t.Fatalf("cString = %q", got)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}
