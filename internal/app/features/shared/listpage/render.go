// internal/app/features/shared/listpage/render.go
package listpage

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
)

// RenderPage renders a full page through the shared layout.
func RenderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	templates.Render(w, r, name, data)
}

// RenderTable renders a fragment without the layout.
func RenderTable(w http.ResponseWriter, r *http.Request, name string, data any) {
	templates.RenderSnippet(w, name, data)
}
