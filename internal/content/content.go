package content

import (
	"errors"
	"sort"

	"github.com/maruel/natural"
)

// ErrNotFound is returned when a slug or id does not resolve.
var ErrNotFound = errors.New("not found")

// Essay is a long-form writing page.
type Essay struct {
	Slug        string       `json:"slug"`
	Metadata    Metadata     `json:"metadata"`
	Sections    []Section    `json:"sections"`
	Annotations []Annotation `json:"annotations"`
	Footnotes   []Footnote   `json:"footnotes"`
	Source      string       `json:"source,omitempty"` // File the essay was loaded from; empty for built-ins.
}

// Metadata is the header block shown above an essay.
type Metadata struct {
	Title       string   `json:"title" yaml:"title"`
	Author      string   `json:"author,omitempty" yaml:"author"`
	Date        string   `json:"date,omitempty" yaml:"date"`
	LastUpdated string   `json:"last_updated,omitempty" yaml:"last_updated"`
	Status      string   `json:"status,omitempty" yaml:"status"`
	Confidence  string   `json:"confidence,omitempty" yaml:"confidence"`
	Importance  string   `json:"importance,omitempty" yaml:"importance"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Abstract    string   `json:"abstract,omitempty" yaml:"abstract"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	References  int      `json:"references,omitempty" yaml:"references"`
	Backlinks   int      `json:"backlinks,omitempty" yaml:"backlinks"`

	// Filled in by Measure.
	WordCount   int    `json:"word_count" yaml:"-"`
	ReadingTime string `json:"reading_time" yaml:"-"`
}

// Section is one heading-delimited part of an essay.
type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	HTML    string   `json:"html"`              // Rendered body with inline markers.
	Text    string   `json:"-"`                 // Plain text, for measuring.
	Markers []string `json:"markers,omitempty"` // Footnote ids in order of appearance.
}

// Annotation is a margin note owned by a section.
type Annotation struct {
	ID        string `json:"id" yaml:"id"`
	SectionID string `json:"section_id" yaml:"section"`
	Text      string `json:"text" yaml:"text"`
}

// Footnote is a reference rendered beside its inline marker.
type Footnote struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Section returns the section with the given id.
func (e *Essay) Section(id string) (Section, bool) {
	for _, s := range e.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// SectionIDs returns section ids in reading order.
func (e *Essay) SectionIDs() []string {
	ids := make([]string, 0, len(e.Sections))
	for _, s := range e.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// AnnotationsFor returns the annotations owned by a section, in authored order.
func (e *Essay) AnnotationsFor(sectionID string) []Annotation {
	var out []Annotation
	for _, a := range e.Annotations {
		if a.SectionID == sectionID {
			out = append(out, a)
		}
	}
	return out
}

// Footnote returns the footnote with the given id.
func (e *Essay) Footnote(id string) (Footnote, bool) {
	for _, f := range e.Footnotes {
		if f.ID == id {
			return f, true
		}
	}
	return Footnote{}, false
}

// FootnoteIDs returns footnote ids in natural order ("2" before "10").
func (e *Essay) FootnoteIDs() []string {
	ids := make([]string, 0, len(e.Footnotes))
	for _, f := range e.Footnotes {
		ids = append(ids, f.ID)
	}
	sort.Sort(natural.StringSlice(ids))
	return ids
}

// Markers returns every inline marker in reading order.
func (e *Essay) Markers() []string {
	var out []string
	for _, s := range e.Sections {
		out = append(out, s.Markers...)
	}
	return out
}

// SortFootnotes orders footnotes naturally by id.
func (e *Essay) SortFootnotes() {
	sort.SliceStable(e.Footnotes, func(i, j int) bool {
		return natural.Less(e.Footnotes[i].ID, e.Footnotes[j].ID)
	})
}
