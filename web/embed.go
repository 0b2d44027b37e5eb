// Package web holds the browser page that displays an editor session.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*.html static/*.js static/*.css
var ContentFS embed.FS

// Handler serves the page and its assets.
func Handler() http.Handler {
	static, err := fs.Sub(ContentFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(static))
}
