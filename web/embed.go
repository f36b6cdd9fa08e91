// Package web holds the HTML templates of the dashboard and history pages.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Parse parses every template with funcs available to them.
func Parse(funcs template.FuncMap) (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(files, "templates/*.html")
}
