package content

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Validate checks an essay's structural invariants and returns every
// problem found, combined.
func Validate(e *Essay) error {
	if e == nil {
		return fmt.Errorf("nil essay")
	}
	var err error
	if strings.TrimSpace(e.Slug) == "" {
		err = multierr.Append(err, fmt.Errorf("missing slug"))
	}
	if strings.TrimSpace(e.Metadata.Title) == "" {
		err = multierr.Append(err, fmt.Errorf("missing title"))
	}
	if len(e.Sections) == 0 {
		err = multierr.Append(err, fmt.Errorf("no sections"))
	}

	sections := make(map[string]bool, len(e.Sections))
	for i, s := range e.Sections {
		if s.ID == "" {
			err = multierr.Append(err, fmt.Errorf("section %d: missing id", i))
			continue
		}
		if sections[s.ID] {
			err = multierr.Append(err, fmt.Errorf("section %q: duplicate id", s.ID))
		}
		sections[s.ID] = true
	}

	annotations := make(map[string]bool, len(e.Annotations))
	for _, a := range e.Annotations {
		if annotations[a.ID] {
			err = multierr.Append(err, fmt.Errorf("annotation %q: duplicate id", a.ID))
		}
		annotations[a.ID] = true
		if !sections[a.SectionID] {
			err = multierr.Append(err, fmt.Errorf("annotation %q: unknown section %q", a.ID, a.SectionID))
		}
	}

	footnotes := make(map[string]bool, len(e.Footnotes))
	for _, f := range e.Footnotes {
		if footnotes[f.ID] {
			err = multierr.Append(err, fmt.Errorf("footnote %q: duplicate id", f.ID))
		}
		footnotes[f.ID] = true
	}
	referenced := make(map[string]bool, len(footnotes))
	for _, s := range e.Sections {
		for _, m := range s.Markers {
			referenced[m] = true
			if !footnotes[m] {
				err = multierr.Append(err, fmt.Errorf("section %q: marker %q has no footnote", s.ID, m))
			}
		}
	}
	for _, id := range e.FootnoteIDs() {
		if !referenced[id] {
			err = multierr.Append(err, fmt.Errorf("footnote %q: never referenced", id))
		}
	}
	return err
}
