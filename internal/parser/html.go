package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/gosimple/slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles hand-written HTML essays.
//
// Sections start at each <h2> or at a <section id>. Footnote markers are
// <sup data-footnote="id">, definitions are <li data-footnote="id"> inside an
// element with class "footnotes", and margin notes are <aside> elements,
// optionally tagged with data-section.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*content.Essay, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var fm frontMatter
	fm.Title = findTitle(doc)
	readMeta(doc, &fm.Metadata)
	return buildEssay(doc, filename, fm), nil
}

// introductionID names content that appears before the first heading.
const introductionID = "introduction"

type sectionBuilder struct {
	id, title string
	html      bytes.Buffer
	text      []string
	markers   []string
}

type essayBuilder struct {
	essay      *content.Essay
	ids        map[string]int
	sections   []*sectionBuilder
	current    *sectionBuilder
	claimTitle bool
	perSection map[string]int
}

// buildEssay walks a parsed HTML document and splits it into sections,
// footnotes and annotations. Footnote references produced by goldmark are
// rewritten to the <sup data-footnote> form so every source format exposes
// the same markers.
func buildEssay(doc *html.Node, filename string, fm frontMatter) *content.Essay {
	b := newEssayBuilder(filename, fm)
	root := findBody(doc)
	if root == nil {
		root = doc
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		b.visit(c)
	}
	return b.finish(filename)
}

func newEssayBuilder(filename string, fm frontMatter) *essayBuilder {
	e := &content.Essay{
		Slug:        fm.Slug,
		Metadata:    fm.Metadata,
		Annotations: append([]content.Annotation(nil), fm.Annotations...),
	}
	if e.Slug == "" {
		e.Slug = slug.Make(stem(filename))
	}
	return &essayBuilder{
		essay:      e,
		ids:        make(map[string]int),
		perSection: make(map[string]int),
	}
}

func (b *essayBuilder) finish(filename string) *content.Essay {
	e := b.essay
	if e.Metadata.Title == "" {
		e.Metadata.Title = stem(filename)
	}
	for _, s := range b.sections {
		e.Sections = append(e.Sections, content.Section{
			ID:      s.id,
			Title:   s.title,
			HTML:    strings.TrimSpace(s.html.String()),
			Text:    strings.Join(s.text, "\n\n"),
			Markers: s.markers,
		})
	}
	e.SortFootnotes()
	return e
}

func (b *essayBuilder) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			b.addContent(n)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Nav, atom.Header, atom.Footer, atom.Head, atom.Title, atom.Meta:
		return
	case atom.H1:
		if b.essay.Metadata.Title == "" {
			b.essay.Metadata.Title = textContent(n)
		}
		return
	case atom.H2:
		title := textContent(n)
		if b.claimTitle && b.current != nil && b.current.html.Len() == 0 {
			b.current.title = title
			b.claimTitle = false
			return
		}
		b.startSection(attr(n, "id"), title)
		return
	case atom.Aside:
		b.addAnnotation(n)
		return
	case atom.Section, atom.Article, atom.Main, atom.Div, atom.Ol:
		if hasClass(n, "footnotes") {
			b.collectFootnotes(n)
			return
		}
		if n.DataAtom == atom.Div || n.DataAtom == atom.Ol {
			break
		}
		if id := attr(n, "id"); id != "" && n.DataAtom == atom.Section {
			b.startSection(id, "")
			b.claimTitle = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.visit(c)
		}
		return
	}
	b.addContent(n)
}

func (b *essayBuilder) startSection(id, title string) {
	if id == "" {
		id = slug.Make(title)
	}
	if id == "" {
		id = "section"
	}
	if b.ids[id] > 0 {
		base := id
		for n := b.ids[base] + 1; ; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
			if b.ids[id] == 0 {
				b.ids[base] = n
				break
			}
		}
	}
	b.ids[id]++
	b.current = &sectionBuilder{id: id, title: title}
	b.sections = append(b.sections, b.current)
	b.claimTitle = false
}

func (b *essayBuilder) addContent(n *html.Node) {
	if b.current == nil {
		b.startSection(introductionID, "")
	}
	b.claimTitle = false
	b.current.markers = append(b.current.markers, rewriteMarkers(n)...)
	_ = html.Render(&b.current.html, n)
	if n.Type == html.ElementNode {
		b.current.html.WriteByte('\n')
	}
	if t := textContent(n); t != "" {
		b.current.text = append(b.current.text, t)
	}
}

func (b *essayBuilder) addAnnotation(n *html.Node) {
	sectionID := attr(n, "data-section")
	if sectionID == "" {
		if b.current == nil {
			b.startSection(introductionID, "")
		}
		sectionID = b.current.id
	}
	id := attr(n, "id")
	if id == "" {
		b.perSection[sectionID]++
		id = fmt.Sprintf("%s-%d", sectionID, b.perSection[sectionID])
	}
	b.essay.Annotations = append(b.essay.Annotations, content.Annotation{
		ID:        id,
		SectionID: sectionID,
		Text:      textContent(n),
	})
}

func (b *essayBuilder) collectFootnotes(n *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			id := attr(n, "data-footnote")
			if id == "" {
				id = strings.TrimPrefix(strings.TrimPrefix(attr(n, "id"), "fn:"), "fn-")
			}
			if id != "" {
				b.essay.Footnotes = append(b.essay.Footnotes, content.Footnote{ID: id, Text: textContent(n)})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}

// rewriteMarkers normalizes every footnote reference under n to
// <sup data-footnote="id" class="footnote-marker">id</sup> and returns the
// ids in document order.
func rewriteMarkers(n *html.Node) []string {
	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Sup {
			if id := markerID(n); id != "" {
				n.Attr = []html.Attribute{
					{Key: "data-footnote", Val: id},
					{Key: "class", Val: "footnote-marker"},
				}
				for c := n.FirstChild; c != nil; {
					next := c.NextSibling
					n.RemoveChild(c)
					c = next
				}
				n.AppendChild(&html.Node{Type: html.TextNode, Data: id})
				ids = append(ids, id)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return ids
}

func markerID(sup *html.Node) string {
	if id := attr(sup, "data-footnote"); id != "" {
		return id
	}
	for c := sup.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.A {
			if href := attr(c, "href"); strings.HasPrefix(href, "#fn:") {
				return strings.TrimPrefix(href, "#fn:")
			}
		}
	}
	return ""
}

// textContent returns the whitespace-collapsed text under n, leaving out
// footnote markers and back-references.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Sup && attr(n, "data-footnote") != "" {
				return
			}
			if n.DataAtom == atom.A && hasClass(n, "footnote-backref") {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// readMeta copies <meta name=...> values into metadata.
func readMeta(n *html.Node, md *content.Metadata) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
		v := attr(n, "content")
		switch strings.ToLower(attr(n, "name")) {
		case "author":
			md.Author = v
		case "date":
			md.Date = v
		case "description":
			md.Abstract = v
		case "keywords":
			for _, k := range strings.Split(v, ",") {
				if k = strings.TrimSpace(k); k != "" {
					md.Tags = append(md.Tags, k)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		readMeta(c, md)
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
