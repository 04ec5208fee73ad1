package careers

import (
	"slices"
	"strings"
)

// DefaultPriority is the fixed department order of the listing. Departments
// not named here follow in the order they first appear.
var DefaultPriority = []string{
	"Clinical Operations",
	"Research",
	"Software",
	"Data Science",
	"Regulatory Affairs",
	"Operations",
	"Business Development",
}

// austinMarker selects the primary apply link of a merged opening.
const austinMarker = "Austin"

// Opening is one job title within a department. Requisitions that differ
// only by location are merged into one Opening with up to two apply links.
type Opening struct {
	Title      string
	AustinURL  string
	OtherURL   string
	Locations  []string
	ContentRaw string
}

// Links returns the non-empty apply links, Austin first.
func (o Opening) Links() []string {
	var out []string
	for _, u := range []string{o.AustinURL, o.OtherURL} {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Section is a department and its openings.
type Section struct {
	Department string
	Openings   []Opening
}

// Listing is the grouped, ordered careers page content.
type Listing struct {
	Sections []Section
}

// Empty reports whether the listing has no openings.
func (l Listing) Empty() bool { return len(l.Sections) == 0 }

// Build groups jobs by department, merges same-title requisitions within a
// department and orders departments by priority. A job listed under two
// departments appears in both; a job with no department is skipped.
func Build(jobs []Job, priority []string) Listing {
	byDept := make(map[string][]Opening)
	var seen []string

	for _, j := range jobs {
		for _, d := range j.Departments {
			name := strings.TrimSpace(d.Name)
			if name == "" {
				continue
			}
			if _, ok := byDept[name]; !ok {
				seen = append(seen, name)
				byDept[name] = nil
			}
			byDept[name] = merge(byDept[name], j)
		}
	}

	var l Listing
	emit := func(name string) {
		if openings := byDept[name]; len(openings) > 0 {
			l.Sections = append(l.Sections, Section{Department: name, Openings: openings})
		}
	}
	for _, name := range priority {
		emit(name)
	}
	for _, name := range seen {
		if !slices.Contains(priority, name) {
			emit(name)
		}
	}
	return l
}

func merge(openings []Opening, j Job) []Opening {
	title := strings.TrimSpace(j.Title)
	loc := j.Location.Name

	for i := range openings {
		o := &openings[i]
		if o.Title != title {
			continue
		}
		if slices.Contains(o.Locations, loc) {
			return openings
		}
		o.Locations = append(o.Locations, loc)
		assignLink(o, loc, j.AbsoluteURL)
		return openings
	}

	o := Opening{Title: title, Locations: []string{loc}, ContentRaw: j.Content}
	assignLink(&o, loc, j.AbsoluteURL)
	return append(openings, o)
}

// assignLink fills the Austin or fallback slot; an occupied slot is kept.
func assignLink(o *Opening, location, link string) {
	if strings.Contains(location, austinMarker) {
		if o.AustinURL == "" {
			o.AustinURL = link
		}
		return
	}
	if o.OtherURL == "" {
		o.OtherURL = link
	}
}
