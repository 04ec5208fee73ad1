package form

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/regform/regform/internal/schema"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var fieldsTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// Render produces the unhydrated markup of every descriptor in s.
func Render(s *schema.Schema) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fieldsTmpl.ExecuteTemplate(&buf, "fields", s); err != nil {
		return "", fmt.Errorf("rendering %s fields: %w", s.Page, err)
	}
	return template.HTML(buf.String()), nil
}
