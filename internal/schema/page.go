package schema

import "fmt"

// Page identifies a questionnaire route.
type Page string

const (
	Screener           Page = "screener"
	Consent            Page = "consent"
	PersonalInfo       Page = "personal-info"
	HealthInfo         Page = "health-info"
	SubmissionApproval Page = "submission-approval"
	SubmissionState    Page = "submission-state"
	Instructions       Page = "application-instructions"
)

// FormPages are the pages backed by a field schema, in flow order.
var FormPages = []Page{Screener, Consent, PersonalInfo, HealthInfo}

var allPages = []Page{Screener, Consent, PersonalInfo, HealthInfo, SubmissionApproval, SubmissionState, Instructions}

// ParsePage resolves a route segment to a Page.
func ParsePage(s string) (Page, error) {
	for _, p := range allPages {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown page %q", s)
}

// Route is the page's navigation path.
func (p Page) Route() string {
	return "/patient-registry/" + string(p) + "/"
}

// HasForm reports whether the page renders a field schema.
func (p Page) HasForm() bool {
	for _, fp := range FormPages {
		if fp == p {
			return true
		}
	}
	return false
}

// SchemaPath is the path the page's schema is served from.
func (p Page) SchemaPath() string {
	return "/data/" + string(p) + ".json"
}

// Title is the heading shown on the page.
func (p Page) Title() string {
	switch p {
	case Screener:
		return "Eligibility Screener"
	case Consent:
		return "Informed Consent"
	case PersonalInfo:
		return "Personal Information"
	case HealthInfo:
		return "Health Information"
	case SubmissionApproval:
		return "Review and Submit"
	case SubmissionState:
		return "Application Status"
	case Instructions:
		return "Application Instructions"
	}
	return string(p)
}
