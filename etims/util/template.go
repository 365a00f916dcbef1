package util

import (
	"bytes"
	"html/template"
)

// TemplateFuncs are available to every receipt template.
var TemplateFuncs = template.FuncMap{
	"hyphens": FormatWithHyphens,
	// safeURL lets generated data URIs through html/template's URL filter.
	"safeURL": func(s string) template.URL { return template.URL(s) },
}

// ParseTemplate parses tpl with TemplateFuncs attached.
func ParseTemplate(name, tpl string) (*template.Template, error) {
	return template.New(name).Funcs(TemplateFuncs).Parse(tpl)
}

func MergeTemplate(tmpl *template.Template, model any) ([]byte, error) {
	var output bytes.Buffer

	err := tmpl.Execute(&output, model)
	if err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}
