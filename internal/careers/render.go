package careers

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var listingTmpl = template.Must(template.New("careers").Funcs(template.FuncMap{
	"join":        strings.Join,
	"description": description,
}).ParseFS(templateFS, "templates/*.html.tmpl"))

var (
	contentPolicyOnce sync.Once
	contentPolicy     *bluemonday.Policy
)

// description turns a job board's entity-escaped HTML body into markup safe
// to embed in the page.
func description(raw string) template.HTML {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	contentPolicyOnce.Do(func() {
		contentPolicy = bluemonday.UGCPolicy()
	})
	cleaned := strings.TrimSpace(contentPolicy.Sanitize(html.UnescapeString(raw)))
	return template.HTML(cleaned)
}

// Render produces the listing markup.
func Render(l Listing) (template.HTML, error) {
	var buf bytes.Buffer
	if err := listingTmpl.ExecuteTemplate(&buf, "listing", l); err != nil {
		return "", fmt.Errorf("rendering careers listing: %w", err)
	}
	return template.HTML(buf.String()), nil
}
