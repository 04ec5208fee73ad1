// Package schema describes questionnaire pages: the fixed page table and
// the JSON field descriptors each form page is built from.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is a field descriptor's template category.
type Kind string

const (
	KindTextField         Kind = "text-field"
	KindTextView          Kind = "text-view"
	KindCheckboxMenuItem  Kind = "checkbox-menu-item"
	KindLabeledCheckbox   Kind = "labeled-checkbox"
	KindSelectionGrouping Kind = "selection-grouping"
	KindYesNoSelection    Kind = "yes-no-selection"
	KindAgreeCheckbox     Kind = "agree-checkbox"
	KindLineBreak         Kind = "line-break"
	KindSectionBreak      Kind = "section-break"
)

func (k Kind) valid() bool {
	switch k {
	case KindTextField, KindTextView, KindCheckboxMenuItem, KindLabeledCheckbox,
		KindSelectionGrouping, KindYesNoSelection, KindAgreeCheckbox,
		KindLineBreak, KindSectionBreak:
		return true
	}
	return false
}

// Option is one enumerated value of a choice field. In JSON it is either a
// bare string or {"value": ..., "label": ...}.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value, o.Label = s, s
		return nil
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("option must be a string or an object: %w", err)
	}
	if p.Label == "" {
		p.Label = p.Value
	}
	*o = Option(p)
	return nil
}

var yesNoOptions = []Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}}

// Field is a single field descriptor.
type Field struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"templateName"`
	Required  bool     `json:"required,omitempty"`
	Label     string   `json:"label,omitempty"`
	InputType string   `json:"inputType,omitempty"`
	Items     []Option `json:"items,omitempty"`
}

// IsInput reports whether the field holds an answer.
func (f Field) IsInput() bool {
	switch f.Kind {
	case KindTextView, KindLineBreak, KindSectionBreak:
		return false
	}
	return true
}

// IsMulti reports whether the field is a set of independent checkboxes whose
// checked values are stored comma-joined under the field id.
func (f Field) IsMulti() bool {
	return f.Kind == KindCheckboxMenuItem || f.Kind == KindLabeledCheckbox
}

// IsSingleChoice reports whether the field is a radio group.
func (f Field) IsSingleChoice() bool {
	return f.Kind == KindSelectionGrouping || f.Kind == KindYesNoSelection
}

// IsFreeText reports whether the field is a free-text or date input.
func (f Field) IsFreeText() bool {
	return f.Kind == KindTextField
}

// HTMLInputType is the type attribute rendered for a text field.
func (f Field) HTMLInputType() string {
	if f.InputType == "" {
		return "text"
	}
	return f.InputType
}

// Options returns the enumerated values, defaulting yes/no selections.
func (f Field) Options() []Option {
	if f.Kind == KindYesNoSelection && len(f.Items) == 0 {
		return yesNoOptions
	}
	return f.Items
}

// HasOption reports whether value is one of the field's options.
func (f Field) HasOption(value string) bool {
	for _, o := range f.Options() {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Schema is the parsed descriptor list of one page.
type Schema struct {
	Page  Page    `json:"-"`
	Items []Field `json:"items"`
}

// Field looks up a descriptor by id.
func (s *Schema) Field(id string) (Field, bool) {
	for _, f := range s.Items {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Inputs returns the descriptors that hold answers, in page order.
func (s *Schema) Inputs() []Field {
	var out []Field
	for _, f := range s.Items {
		if f.IsInput() {
			out = append(out, f)
		}
	}
	return out
}

// InputIDs returns the ids of Inputs.
func (s *Schema) InputIDs() []string {
	inputs := s.Inputs()
	ids := make([]string, len(inputs))
	for i, f := range inputs {
		ids[i] = f.ID
	}
	return ids
}

// Parse decodes and checks a page schema document.
func Parse(page Page, data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s schema: %w", page, err)
	}
	s.Page = page

	var errs []error
	seen := make(map[string]bool, len(s.Items))
	for i, f := range s.Items {
		if !f.Kind.valid() {
			errs = append(errs, fmt.Errorf("item %d: unknown templateName %q", i, f.Kind))
			continue
		}
		if f.ID == "" {
			errs = append(errs, fmt.Errorf("item %d: missing id", i))
			continue
		}
		if seen[f.ID] {
			errs = append(errs, fmt.Errorf("item %d: duplicate id %q", i, f.ID))
		}
		seen[f.ID] = true
		if (f.IsMulti() || f.Kind == KindSelectionGrouping) && len(f.Items) == 0 {
			errs = append(errs, fmt.Errorf("item %q: %s needs items", f.ID, f.Kind))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid %s schema: %w", page, err)
	}
	return &s, nil
}
