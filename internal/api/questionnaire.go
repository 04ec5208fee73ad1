package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/flow"
	"github.com/regform/regform/internal/form"
	"github.com/regform/regform/internal/schema"
	"github.com/regform/regform/internal/submission"
	"github.com/regform/regform/internal/validate"
)

func (h *handler) store(r *http.Request) *answers.Session {
	return answers.ForSession(h.deps.Store, SessionID(r.Context()))
}

func pageParam(r *http.Request) (schema.Page, bool) {
	p, err := schema.ParsePage(chi.URLParam(r, "page"))
	return p, err == nil
}

// guard redirects and returns false when page is not reachable yet.
func (h *handler) guard(w http.ResponseWriter, r *http.Request, store answers.Store, page schema.Page, code int) bool {
	target, err := flow.Guard(store, page)
	if err != nil {
		h.pageError(w, r, err)
		return false
	}
	if target != "" {
		http.Redirect(w, r, target.Route(), code)
		return false
	}
	return true
}

func (h *handler) handlePage(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	store := h.store(r)
	if !h.guard(w, r, store, page, http.StatusFound) {
		return
	}

	switch {
	case page.HasForm():
		h.renderForm(w, r, http.StatusOK, page, store, flow.Result{})
	case page == schema.SubmissionApproval:
		h.renderApproval(w, r, store, "")
	case page == schema.SubmissionState:
		state, err := submission.StateOf(store)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		h.writePage(w, r, http.StatusOK, "status", pageData{Page: page, State: state}, nil)
	case page == schema.Instructions:
		h.writePage(w, r, http.StatusOK, "instructions", pageData{Page: page, VideoID: h.deps.VideoID}, nil)
	default:
		http.NotFound(w, r)
	}
}

// renderForm renders a form page hydrated from store. A blocked result is
// shown as an inline field error or a page alert.
func (h *handler) renderForm(w http.ResponseWriter, r *http.Request, status int, page schema.Page, store answers.Store, res flow.Result) {
	s, err := h.deps.Schemas.Load(r.Context(), page)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	fields, err := form.Render(s)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	data := pageData{
		Page:    page,
		Action:  page.Route() + "continue",
		Fields:  fields,
		Captcha: page == schema.Consent,
	}
	if res.Alert {
		data.Alert = res.Message
	}
	h.writePage(w, r, status, "form", data, func(doc *html.Node) error {
		if err := form.Hydrate(doc, s, store, h.deps.Flow.Validator(store)); err != nil {
			return err
		}
		if res.FieldID != "" {
			form.MarkError(doc, res.FieldID, res.Message)
			markAutofocus(doc, res.FieldID)
		}
		return nil
	})
}

// markAutofocus focuses the first visible control of fieldID.
func markAutofocus(doc *html.Node, fieldID string) {
	var done bool
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if done {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" {
			var name, typ string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "type":
					typ = a.Val
				}
			}
			if name == fieldID && typ != "hidden" {
				n.Attr = append(n.Attr, html.Attribute{Key: "autofocus"})
				done = true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
}

func (h *handler) renderApproval(w http.ResponseWriter, r *http.Request, store answers.Store, alert string) {
	all, err := store.All()
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	var rows []summaryRow
	for k, v := range all {
		if answers.IsFlag(k) || k == validate.AdultKey {
			continue
		}
		rows = append(rows, summaryRow{Key: k, Value: v})
	}
	slices.SortFunc(rows, func(a, b summaryRow) int { return strings.Compare(a.Key, b.Key) })

	h.writePage(w, r, http.StatusOK, "approval", pageData{
		Page:    schema.SubmissionApproval,
		Action:  schema.SubmissionApproval.Route() + "submit",
		Alert:   alert,
		Summary: rows,
	}, nil)
}

func (h *handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok || !page.HasForm() {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	store := h.store(r)
	if !h.guard(w, r, store, page, http.StatusSeeOther) {
		return
	}
	s, err := h.deps.Schemas.Load(r.Context(), page)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if err := form.Persist(store, s, r.PostForm); err != nil {
		h.pageError(w, r, err)
		return
	}

	res, err := h.deps.Flow.Continue(r.Context(), page, flow.Input{
		SessionID:    SessionID(r.Context()),
		Store:        store,
		CaptchaToken: captchaToken(r),
	})
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if !res.Blocked() {
		http.Redirect(w, r, res.Next.Route(), http.StatusSeeOther)
		return
	}
	h.renderForm(w, r, http.StatusUnprocessableEntity, page, store, res)
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	store := h.store(r)
	res, err := h.deps.Gate.Submit(r.Context(), SessionID(r.Context()), store, captchaToken(r))
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if res == submission.Aborted {
		http.Redirect(w, r, schema.SubmissionApproval.Route(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, schema.SubmissionState.Route(), http.StatusSeeOther)
}

// captchaToken reads the token from the form, falling back to the header
// the registry API uses.
func captchaToken(r *http.Request) string {
	if t := strings.TrimSpace(r.PostFormValue(CaptchaField)); t != "" {
		return t
	}
	return strings.TrimSpace(r.Header.Get("X-Captcha-Token"))
}

type autosaveRequest struct {
	Page   string   `json:"page"`
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

type autosaveResponse struct {
	Field   string `json:"field"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// handleAutosave persists one control as the visitor edits it and returns
// the field's validation state.
func (h *handler) handleAutosave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req autosaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	page, err := schema.ParsePage(req.Page)
	if err != nil || !page.HasForm() {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown page %q", req.Page)
		return
	}
	s, err := h.deps.Schemas.Load(r.Context(), page)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading schema: %v", err)
		return
	}
	f, ok := s.Field(req.Field)
	if !ok || !f.IsInput() {
		httpError(w, http.StatusNotFound, "not_found", "field %q not found on %s", req.Field, page)
		return
	}

	store := h.store(r)
	if err := form.PersistField(store, f, req.Values); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "saving answer: %v", err)
		return
	}

	resp := autosaveResponse{Field: f.ID, Valid: true}
	if f.IsFreeText() {
		msg, err := h.deps.Flow.Validator(store).Validate(f.ID, "", f.Required)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "validating answer: %v", err)
			return
		}
		resp.Valid, resp.Message = msg == "", msg
	}
	writeJSON(w, http.StatusOK, resp)
}
