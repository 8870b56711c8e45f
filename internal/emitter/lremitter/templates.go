package lremitter

import (
	"bytes"
	"text/template"
)

var funcs = template.FuncMap{
	"cstring": cString,
}

// actionTmpl renders one group of requests as an action function.
var actionTmpl = template.Must(template.New("action").Funcs(funcs).Parse(`{{.Func}}()
{
{{- range .Requests}}

	// {{.ID}}{{with .Summary}}: {{.}}{{end}}
{{- range .Params}}
	// {{.In}} {{.Name}}{{if .Required}} (required){{end}}: {{.Type}}
{{- end}}
	lr_start_transaction("{{.Transaction}}");
{{- range .Headers}}
	web_add_header("{{.Name}}", "{{.Value}}");
{{- end}}

	web_custom_request("{{.Transaction}}",
		"URL={{.URL}}",
		"Method={{.Method}}",
		"Resource=0",
{{- with .EncType}}
		"EncType={{.}}",
{{- end}}
		"Mode=HTTP",
{{- with .Body}}
		"Body="
		{{.}},
{{- end}}
		LAST);

	lr_end_transaction("{{.Transaction}}", LR_AUTO);
{{- end}}

	return 0;
}
`))

var globalsTmpl = template.Must(template.New("globals").Funcs(funcs).Parse(`#ifndef _GLOBALS_H
#define _GLOBALS_H

//--------------------------------------------------------------------
// Include Files
#include "lrun.h"
#include "web_api.h"
#include "lrw_custom_body.h"

//--------------------------------------------------------------------
// Global Variables
// Script {{.ScriptName}}{{with .Title}} for {{.}}{{end}}{{with .Version}} {{.}}{{end}}
{{range .Groups}}
int {{.Func}}();
{{- end}}

#endif // _GLOBALS_H
`))

var vuserInitTmpl = template.Must(template.New("vuser_init").Funcs(funcs).Parse(`vuser_init()
{
{{- if .BaseURL}}
	lr_save_string("{{cstring .BaseURL}}", "BaseURL");
{{- else}}
	// BaseURL must come from a parameter file.
{{- end}}
	return 0;
}
`))

var vuserEndTmpl = template.Must(template.New("vuser_end").Parse(`vuser_end()
{
	return 0;
}
`))

var actionMainTmpl = template.Must(template.New("Action").Parse(`Action()
{
{{- range .Groups}}
	{{.Func}}();
{{- end}}
	return 0;
}
`))

// scriptTemplates are rendered once per script with scriptData.
var scriptTemplates = map[string]*template.Template{
	"globals.h":    globalsTmpl,
	"vuser_init.c": vuserInitTmpl,
	"vuser_end.c":  vuserEndTmpl,
	actionFileName: actionMainTmpl,
}

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
