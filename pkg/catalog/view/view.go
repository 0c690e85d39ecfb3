// Package view renders catalog pages from structured data.
package view

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/pkg/errors"
)

//go:embed templates/catalog.html
var templates embed.FS

var catalogTemplate = template.Must(template.ParseFS(templates, "templates/catalog.html"))

const DefaultTitle = "Product Catalog"

// FormEcho carries submitted values back into the form.
type FormEcho struct {
	Name  string
	Price string
}

type Page struct {
	Title   string
	Message string
	// Error replaces the item list when products could not be loaded.
	Error string
	Items []string
	Form  FormEcho
}

func Render(page Page) ([]byte, error) {
	if page.Title == "" {
		page.Title = DefaultTitle
	}

	var buf bytes.Buffer
	if err := catalogTemplate.Execute(&buf, page); err != nil {
		return nil, errors.Wrap(err, "render catalog page")
	}
	return buf.Bytes(), nil
}

// Fallback is used when the page template itself fails.
func Fallback(detail string) []byte {
	return []byte("<html><body><h1>" + DefaultTitle + "</h1><p class=\"error\">" +
		template.HTMLEscapeString(detail) + "</p></body></html>")
}
