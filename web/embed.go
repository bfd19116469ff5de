// Package web holds the page templates and browser assets of the dashboard.
package web

import (
	"embed"
	"io/fs"
)

// TemplatesFS holds every page and fragment template.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var staticFiles embed.FS

// Static returns the assets served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}
