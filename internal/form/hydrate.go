package form

import (
	"fmt"
	"slices"

	"golang.org/x/net/html"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/schema"
)

// FieldValidator reports a user-facing message for an invalid stored value.
// Implemented by *validate.Validator.
type FieldValidator interface {
	Validate(fieldID, current string, required bool) (string, error)
}

// Hydrate restores every stored answer of s into the parsed document: text
// and date inputs get their value (and any validation error), radio groups
// and checkboxes get their checked state. Keys missing from the store are
// skipped. v may be nil.
func Hydrate(doc *html.Node, s *schema.Schema, store answers.Store, v FieldValidator) error {
	for _, f := range s.Inputs() {
		value, ok, err := store.Get(f.ID)
		if err != nil {
			return fmt.Errorf("hydrating %s: %w", f.ID, err)
		}
		if !ok {
			continue
		}

		controls := controlsNamed(doc, f.ID)
		switch {
		case f.IsMulti():
			selected := answers.Split(value)
			for _, c := range controls {
				if attr(c, "type") == "checkbox" {
					setBool(c, "checked", slices.Contains(selected, attr(c, "value")))
				}
			}
		case f.IsSingleChoice():
			for _, c := range controls {
				setBool(c, "checked", attr(c, "value") == value)
			}
		case f.Kind == schema.KindAgreeCheckbox:
			for _, c := range controls {
				if attr(c, "type") == "checkbox" {
					setBool(c, "checked", value == "true")
				}
			}
		default:
			for _, c := range controls {
				setAttr(c, "value", value)
			}
			if v == nil {
				continue
			}
			msg, err := v.Validate(f.ID, value, f.Required)
			if err != nil {
				return err
			}
			if msg != "" {
				MarkError(doc, f.ID, msg)
			} else {
				ClearError(doc, f.ID)
			}
		}
	}
	return nil
}

// MarkError flags the control of fieldID as invalid and shows msg in its
// error element. It reports whether the field was found.
func MarkError(doc *html.Node, fieldID, msg string) bool {
	found := false
	for _, c := range controlsNamed(doc, fieldID) {
		if attr(c, "type") == "hidden" {
			continue
		}
		setAttr(c, "aria-invalid", "true")
		found = true
	}
	if errEl := elementByID(doc, fieldID+"-error"); errEl != nil {
		setText(errEl, msg)
		removeAttr(errEl, "hidden")
		found = true
	}
	return found
}

// ClearError removes the invalid state MarkError set.
func ClearError(doc *html.Node, fieldID string) {
	for _, c := range controlsNamed(doc, fieldID) {
		removeAttr(c, "aria-invalid")
	}
	if errEl := elementByID(doc, fieldID+"-error"); errEl != nil {
		setText(errEl, "")
		setAttr(errEl, "hidden", "")
	}
}

func controlsNamed(doc *html.Node, name string) []*html.Node {
	var out []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Data == "input" && attr(n, "name") == name {
			out = append(out, n)
		}
	})
	return out
}

func elementByID(doc *html.Node, id string) *html.Node {
	var found *html.Node
	walk(doc, func(n *html.Node) {
		if found == nil && attr(n, "id") == id {
			found = n
		}
	})
	return found
}

// walk visits every element node depth-first.
func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool { return a.Key == key })
}

func setBool(n *html.Node, key string, on bool) {
	if on {
		setAttr(n, key, "")
	} else {
		removeAttr(n, key)
	}
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}
