package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(sampleEssay()))
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	e := sampleEssay()
	e.Sections = append(e.Sections, Section{ID: "intro", Title: "Again", Markers: []string{"99"}})
	e.Annotations = append(e.Annotations, Annotation{ID: "a9", SectionID: "ghost"})
	e.Footnotes = append(e.Footnotes, Footnote{ID: "7", Text: "orphan"})

	err := Validate(e)
	assert.Error(t, err)

	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	msg := err.Error()
	assert.Contains(t, msg, `section "intro": duplicate id`)
	assert.Contains(t, msg, `annotation "a9": unknown section "ghost"`)
	assert.Contains(t, msg, `marker "99" has no footnote`)
	assert.Contains(t, msg, `footnote "7": never referenced`)
}

func TestValidate_MissingBasics(t *testing.T) {
	err := Validate(&Essay{})
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
}
