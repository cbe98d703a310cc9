package parser

import (
	"html"
	"strings"
)

// addParagraphs appends escaped <p> blocks to the current section, opening
// the introduction section when none exists yet.
func (b *essayBuilder) addParagraphs(paragraphs ...string) {
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.current == nil {
			b.startSection(introductionID, "")
		}
		b.current.html.WriteString("<p>")
		b.current.html.WriteString(html.EscapeString(para))
		b.current.html.WriteString("</p>\n")
		b.current.text = append(b.current.text, strings.Join(strings.Fields(para), " "))
	}
}

// splitParagraphs breaks text on blank lines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
