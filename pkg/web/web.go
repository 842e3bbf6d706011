// Package web holds the embedded registration page and its static assets.
package web

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed views static
var Assets embed.FS

// Engine returns a view engine backed by the embedded templates.
func Engine() *html.Engine {
	return html.NewFileSystem(http.FS(Assets), ".html")
}
