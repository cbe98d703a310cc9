package parser

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/marginalia/internal/content"
	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML block at the top of a Markdown essay.
type frontMatter struct {
	Slug             string `yaml:"slug"`
	content.Metadata `yaml:",inline"`
	Annotations      []content.Annotation `yaml:"annotations"`
}

var fmDelim = []byte("---")

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. Sources without one are returned unchanged.
func splitFrontMatter(src []byte) (frontMatter, []byte, error) {
	var fm frontMatter
	trimmed := bytes.TrimLeft(src, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, fmDelim) {
		return fm, src, nil
	}
	rest := trimmed[len(fmDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, src, nil
	}
	rest = rest[nl+1:]

	var header []byte
	body := []byte(nil)
	found := false
	for len(rest) > 0 {
		line := rest
		next := []byte(nil)
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, next = rest[:i], rest[i+1:]
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fmDelim) {
			body = next
			found = true
			break
		}
		header = append(header, line...)
		header = append(header, '\n')
		rest = next
	}
	if !found {
		return fm, nil, fmt.Errorf("front matter: missing closing ---")
	}
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, fmt.Errorf("front matter: %w", err)
	}
	return fm, body, nil
}
