package content

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// DefaultWordsPerMinute is the reading speed used when none is configured.
const DefaultWordsPerMinute = 238

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime formats the minutes needed to read n words, rounded up.
func ReadingTime(words, wpm int) string {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	minutes := int(math.Ceil(float64(words) / float64(wpm)))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}

// Measure fills in word count and reading time, and an abstract when the
// author did not write one.
func Measure(e *Essay, wpm int) {
	words := 0
	for _, s := range e.Sections {
		words += CountWords(s.Text)
	}
	e.Metadata.WordCount = words
	e.Metadata.ReadingTime = ReadingTime(words, wpm)
	if e.Metadata.Abstract == "" && len(e.Sections) > 0 {
		e.Metadata.Abstract = Excerpt(e.Sections[0].Text)
	}
}

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

// Excerpt returns the first sentence of text. If the sentence model cannot be
// loaded it falls back to the first line.
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = t
		}
	})
	if tokenizer != nil {
		for _, s := range tokenizer.Tokenize(text) {
			if first := strings.TrimSpace(s.Text); first != "" {
				return strings.Join(strings.Fields(first), " ")
			}
		}
	}
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(first)
}
