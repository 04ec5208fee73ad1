// Package form moves answers between posted form controls, the Answer Store
// and the rendered questionnaire markup.
package form

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/schema"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips every tag from a free-text answer. The strict policy
// entity-encodes what it keeps, so the result is unescaped back to plain text.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}

// Persist writes every schema input present in values to the store. Inputs
// absent from values are left untouched.
func Persist(store answers.Store, s *schema.Schema, values url.Values) error {
	for _, f := range s.Inputs() {
		posted, ok := values[f.ID]
		if !ok {
			continue
		}
		if err := PersistField(store, f, posted); err != nil {
			return err
		}
	}
	return nil
}

// PersistField encodes the posted values of one control and stores them
// under the field id. Multi-select groups keep only known options and are
// stored comma-joined; single choices that are not a known option are
// ignored.
func PersistField(store answers.Store, f schema.Field, posted []string) error {
	value, ok := encode(f, posted)
	if !ok {
		return nil
	}
	if err := store.Set(f.ID, value); err != nil {
		return fmt.Errorf("persisting %s: %w", f.ID, err)
	}
	return nil
}

func encode(f schema.Field, posted []string) (string, bool) {
	switch {
	case f.IsMulti():
		var picked []string
		seen := make(map[string]bool, len(posted))
		for _, v := range posted {
			if f.HasOption(v) && !seen[v] {
				seen[v] = true
				picked = append(picked, v)
			}
		}
		return answers.Join(picked), true
	case f.IsSingleChoice():
		v := last(posted)
		if v == "" || !f.HasOption(v) {
			return "", false
		}
		return v, true
	case f.Kind == schema.KindAgreeCheckbox:
		// The template posts a hidden "false" ahead of the checkbox.
		return fmt.Sprint(last(posted) == "true"), true
	default:
		return sanitizeText(last(posted)), true
	}
}

func last(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}
