package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/html"

	"github.com/regform/regform/internal/schema"
	"github.com/regform/regform/internal/submission"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// CaptchaField is the form field the CAPTCHA widget writes its token to.
const CaptchaField = "captcha-response"

var pageTemplates = func() map[string]*template.Template {
	base := template.Must(template.ParseFS(templateFS, "templates/layout.html.tmpl"))
	out := make(map[string]*template.Template)
	for _, name := range []string{"form", "approval", "status", "instructions", "careers"} {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(templateFS, "templates/"+name+".html.tmpl"))
	}
	return out
}()

type summaryRow struct {
	Key   string
	Value string
}

type pageData struct {
	Title        string
	Page         schema.Page
	Action       string
	Alert        string
	Fields       template.HTML
	Captcha      bool
	CaptchaField string
	Summary      []summaryRow
	State        submission.State
	Body         template.HTML
	VideoID      string
}

// writePage executes a page template, lets post edit the parsed document,
// decorates media and writes the result with status.
func (h *handler) writePage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData, post func(doc *html.Node) error) {
	data.CaptchaField = CaptchaField
	if data.Title == "" {
		data.Title = data.Page.Title()
	}

	t, ok := pageTemplates[name]
	if !ok {
		h.pageError(w, r, fmt.Errorf("unknown page template %q", name))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.pageError(w, r, fmt.Errorf("rendering %s: %w", name, err))
		return
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		h.pageError(w, r, fmt.Errorf("parsing rendered %s: %w", name, err))
		return
	}
	if post != nil {
		if err := post(doc); err != nil {
			h.pageError(w, r, err)
			return
		}
	}
	h.deps.Media.Decorate(doc)

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		h.pageError(w, r, fmt.Errorf("writing %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(out.Bytes())
}

func (h *handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	h.deps.Logger.Error("page failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
}
