package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const noteMD = `---
title: Field Notes
last_updated: "2025-01-02"
category: Garden
---
First thoughts.[^1]

## Later

More.

[^1]: A source.
`

func testSite(t *testing.T) content.Site {
	t.Helper()
	site, err := content.DefaultSite()
	require.NoError(t, err)
	return site
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_SeedOnly(t *testing.T) {
	lib := New(testSite(t), Options{}, zap.NewNop())
	require.NoError(t, lib.Load(context.Background()))

	e, err := lib.Essay("applied-legal-research")
	require.NoError(t, err)
	assert.Equal(t, "One Way to Do Applied Legal Research", e.Metadata.Title)
	assert.Equal(t, []string{
		"introduction", "practical-systems", "iterative-process",
		"interdisciplinary-approach", "ethical-considerations", "conclusion",
	}, e.SectionIDs())
	assert.Len(t, e.Footnotes, 10)
	assert.Len(t, e.Annotations, 14)
	assert.Len(t, e.AnnotationsFor("practical-systems"), 3)
	assert.Positive(t, e.Metadata.WordCount)
	assert.NotEmpty(t, e.Metadata.ReadingTime)
	assert.Empty(t, e.Source)

	_, err = lib.Essay("future-of-ai-systems")
	require.NoError(t, err)
	assert.Len(t, lib.Essays(), 2)
	assert.False(t, lib.LoadedAt().IsZero())
}

func TestLoad_ContentDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "field-notes.md", noteMD)
	writeFile(t, dir, "nested/plain.txt", "Just text.\n")
	writeFile(t, dir, ".hidden.md", "ignored")
	writeFile(t, dir, "data.csv", "a,b\n")

	lib := New(testSite(t), Options{ContentDir: dir}, zap.NewNop())
	require.NoError(t, lib.Load(context.Background()))

	e, err := lib.Essay("field-notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "field-notes.md"), e.Source)
	assert.Equal(t, "First thoughts.", e.Metadata.Abstract)

	_, err = lib.Essay("plain")
	require.NoError(t, err)

	essays := lib.Essays()
	require.Len(t, essays, 4)
	assert.Equal(t, "field-notes", essays[0].Slug, "most recently updated first")
}

func TestLoad_BadFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.md", noteMD)
	writeFile(t, dir, "unclosed.md", "---\ntitle: x\n")
	writeFile(t, dir, "orphan.md", "---\ntitle: Orphan\nannotations:\n  - {id: a, section: nowhere, text: t}\n---\nBody.\n")

	lib := New(testSite(t), Options{ContentDir: dir}, zap.NewNop())
	err := lib.Load(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "unclosed.md")
	assert.ErrorContains(t, err, "orphan.md")

	_, err = lib.Essay("good")
	assert.NoError(t, err)
	_, err = lib.Essay("orphan")
	assert.True(t, errors.Is(err, content.ErrNotFound))
}

func TestLoad_DuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/field-notes.md", noteMD)
	writeFile(t, dir, "b/field-notes.md", noteMD)

	lib := New(testSite(t), Options{ContentDir: dir}, zap.NewNop())
	err := lib.Load(context.Background())
	assert.ErrorContains(t, err, "already used")
	_, err = lib.Essay("field-notes")
	assert.NoError(t, err)
}

func TestLoad_ContentOverridesSeed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "future-of-ai-systems.md", "---\ntitle: Rewritten\n---\nNew body.\n")

	lib := New(testSite(t), Options{ContentDir: dir}, zap.NewNop())
	require.NoError(t, lib.Load(context.Background()))

	e, err := lib.Essay("future-of-ai-systems")
	require.NoError(t, err)
	assert.Equal(t, "Rewritten", e.Metadata.Title)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lib := New(testSite(t), Options{}, zap.NewNop())
	assert.ErrorIs(t, lib.Load(ctx), context.Canceled)
}

func TestEssay_NotFound(t *testing.T) {
	lib := New(testSite(t), Options{}, zap.NewNop())
	_, err := lib.Essay("missing")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestCatalog_MergesEssays(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "field-notes.md", noteMD)
	writeFile(t, dir, "elsewhere.md", "---\ntitle: Elsewhere\ncategory: Poems\n---\nA line.\n")

	site := testSite(t)
	before := len(site.Catalog[0].Items)
	lib := New(site, Options{ContentDir: dir}, zap.NewNop())
	require.NoError(t, lib.Load(context.Background()))

	catalog := lib.Catalog()
	find := func(title string) *content.Category {
		for i := range catalog {
			if catalog[i].Title == title {
				return &catalog[i]
			}
		}
		return nil
	}

	garden := find("Garden")
	require.NotNil(t, garden)
	assert.True(t, hasHref(garden.Items, "/writings/field-notes"))

	notes := find("Notes")
	require.NotNil(t, notes)
	for _, it := range notes.Items {
		if it.Href == "/writings/applied-legal-research" {
			assert.Equal(t, 10, it.References)
		}
	}
	assert.True(t, hasHref(notes.Items, "/writings/applied-legal-research"))

	poems := find("Poems")
	require.NotNil(t, poems)
	assert.Len(t, poems.Items, 1)

	assert.Len(t, site.Catalog[0].Items, before, "site catalog must not be mutated")
	assert.Len(t, lib.Catalog(), len(catalog), "repeated calls are stable")
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	lib := New(testSite(t), Options{ContentDir: dir, Watch: true, Debounce: 20 * time.Millisecond}, zap.NewNop())
	require.NoError(t, lib.Load(context.Background()))
	require.NoError(t, lib.Start(context.Background()))
	defer lib.Stop()

	writeFile(t, dir, "field-notes.md", noteMD)
	require.Eventually(t, func() bool {
		_, err := lib.Essay("field-notes")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "field-notes.md")))
	require.Eventually(t, func() bool {
		_, err := lib.Essay("field-notes")
		return errors.Is(err, content.ErrNotFound)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStart_DisabledIsNoop(t *testing.T) {
	lib := New(testSite(t), Options{ContentDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, lib.Start(context.Background()))
	lib.Stop()
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"a/essay.md", fsnotify.Write, true},
		{"a/newdir", fsnotify.Create, true},
		{"a/.essay.md.swp", fsnotify.Write, false},
		{"a/data.csv", fsnotify.Write, false},
		{"a/essay.md", fsnotify.Chmod, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relevant(fsnotify.Event{Name: tt.name, Op: tt.op}), tt.name)
	}
}
