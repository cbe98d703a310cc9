package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/marginalia/internal/content"
)

// TextParser handles plain text files. Paragraphs are separated by blank
// lines and the whole file becomes a single section.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*content.Essay, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	b := newEssayBuilder(filename, frontMatter{})
	b.addParagraphs(splitParagraphs(strings.Join(lines, "\n"))...)
	return b.finish(filename), nil
}
