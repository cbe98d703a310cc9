package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEssay() *Essay {
	return &Essay{
		Slug:     "sample",
		Metadata: Metadata{Title: "Sample"},
		Sections: []Section{
			{ID: "intro", Title: "Introduction", Markers: []string{"1", "2"}},
			{ID: "methods", Title: "Methods", Markers: []string{"10"}},
		},
		Annotations: []Annotation{
			{ID: "a1", SectionID: "intro", Text: "first"},
			{ID: "a2", SectionID: "methods", Text: "second"},
			{ID: "a3", SectionID: "intro", Text: "third"},
		},
		Footnotes: []Footnote{
			{ID: "10", Text: "ten"},
			{ID: "2", Text: "two"},
			{ID: "1", Text: "one"},
		},
	}
}

func TestEssay_AnnotationsFor(t *testing.T) {
	e := sampleEssay()
	got := e.AnnotationsFor("intro")
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a3", got[1].ID)
	assert.Empty(t, e.AnnotationsFor("nowhere"))
}

func TestEssay_FootnoteIDsNaturalOrder(t *testing.T) {
	e := sampleEssay()
	assert.Equal(t, []string{"1", "2", "10"}, e.FootnoteIDs())

	e.SortFootnotes()
	assert.Equal(t, "1", e.Footnotes[0].ID)
	assert.Equal(t, "10", e.Footnotes[2].ID)
}

func TestEssay_Lookups(t *testing.T) {
	e := sampleEssay()

	s, ok := e.Section("methods")
	require.True(t, ok)
	assert.Equal(t, "Methods", s.Title)
	_, ok = e.Section("missing")
	assert.False(t, ok)

	f, ok := e.Footnote("2")
	require.True(t, ok)
	assert.Equal(t, "two", f.Text)
	_, ok = e.Footnote("3")
	assert.False(t, ok)

	assert.Equal(t, []string{"intro", "methods"}, e.SectionIDs())
	assert.Equal(t, []string{"1", "2", "10"}, e.Markers())
}

func TestDefaultSite(t *testing.T) {
	site, err := DefaultSite()
	require.NoError(t, err)

	assert.NotEmpty(t, site.Profile.Name)
	assert.Len(t, site.Profile.Interests, 4)
	assert.Len(t, site.CV.Experience, 6)
	assert.NotEmpty(t, site.CV.Skills)

	var titles []string
	for _, c := range site.Catalog {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Essays", "Research", "Notes", "Garden"}, titles)
}

func TestParseSite_Invalid(t *testing.T) {
	_, err := ParseSite([]byte("profile: [unterminated"))
	assert.Error(t, err)
}
