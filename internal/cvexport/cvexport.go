// Package cvexport renders the CV page as a Word document.
package cvexport

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/fumiama/go-docx"
)

// Font sizes in half-points.
const (
	nameSize    = "40"
	headingSize = "28"
	entrySize   = "22"
	bodySize    = "20"
	mutedColor  = "595959"
)

// Write renders cv under the profile's name and contact line.
func Write(w io.Writer, cv content.CV, profile content.Profile) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(profile.Name).Size(nameSize).Bold()
	if contact := contactLine(profile); contact != "" {
		doc.AddParagraph().AddText(contact).Size(bodySize).Color(mutedColor)
	}

	if len(cv.Experience) > 0 {
		heading(doc, "Experience")
		for _, e := range cv.Experience {
			entry(doc, e.Title+", "+e.Company, joinNonEmpty(" | ", e.Location, e.Date))
			bullets(doc, e.Description)
		}
	}

	if len(cv.Education) > 0 {
		heading(doc, "Education")
		for _, e := range cv.Education {
			entry(doc, e.Degree, joinNonEmpty(" | ", e.Institution, e.Date))
			if e.Details != "" {
				bullets(doc, []string{e.Details})
			}
		}
	}

	if len(cv.Involvements) > 0 {
		heading(doc, "Involvements")
		for _, in := range cv.Involvements {
			entry(doc, in.Role+", "+in.Organization, in.Date)
			bullets(doc, in.Details)
		}
	}

	if len(cv.Skills) > 0 || len(cv.Technologies) > 0 {
		heading(doc, "Skills")
		if len(cv.Skills) > 0 {
			labeled(doc, "Skills: ", strings.Join(cv.Skills, ", "))
		}
		if len(cv.Technologies) > 0 {
			labeled(doc, "Technologies: ", strings.Join(cv.Technologies, ", "))
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func heading(doc *docx.Docx, title string) {
	doc.AddParagraph().AddText(title).Size(headingSize).Bold()
}

func entry(doc *docx.Docx, title, meta string) {
	p := doc.AddParagraph()
	r := p.AddText(title).Size(entrySize).Bold()
	if meta != "" {
		r.AddTab()
		p.AddText(meta).Size(bodySize).Color(mutedColor)
	}
}

func bullets(doc *docx.Docx, lines []string) {
	for _, line := range lines {
		doc.AddParagraph().AddText("• " + line).Size(bodySize)
	}
}

func labeled(doc *docx.Docx, label, value string) {
	doc.AddParagraph().AddText(label + value).Size(bodySize)
}

func contactLine(p content.Profile) string {
	return joinNonEmpty(" · ", p.Email, p.Phone, p.Location, p.Website)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}
