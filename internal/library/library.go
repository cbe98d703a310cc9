// Package library holds the published essays: the built-in seed set plus
// whatever the content directory provides.
package library

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/parser"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed seed/*.md
var seedFS embed.FS

// Options configures a Library.
type Options struct {
	ContentDir     string
	Watch          bool
	Debounce       time.Duration
	WordsPerMinute int
	Concurrency    int
	Parser         parser.Options
}

// Library is safe for concurrent use. Essays returned by it are shared and
// must be treated as read-only.
type Library struct {
	log  *zap.Logger
	opts Options
	site content.Site

	mu       sync.RWMutex
	bySlug   map[string]*content.Essay
	ordered  []*content.Essay
	loadedAt time.Time

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty library. Call Load to populate it.
func New(site content.Site, opts Options, log *zap.Logger) *Library {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.WordsPerMinute <= 0 {
		opts.WordsPerMinute = content.DefaultWordsPerMinute
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		log:    log.With(zap.String("component", "library")),
		opts:   opts,
		site:   site,
		bySlug: make(map[string]*content.Essay),
	}
}

type source struct {
	name string
	open func() (fs.File, error)
	seed bool
}

type result struct {
	essay *content.Essay
	err   error
}

// Load parses the seed essays and every supported file under the content
// directory, then replaces the published set. Files that fail to parse or
// validate are skipped; their errors are combined into the returned error.
func (l *Library) Load(ctx context.Context) error {
	sources, err := l.sources()
	if err != nil {
		return err
	}

	results := make([]result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := l.load(src)
			results[i] = result{essay: e, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	var errs error
	bySlug := make(map[string]*content.Essay, len(results))
	owner := make(map[string]source, len(results))
	for i, r := range results {
		src := sources[i]
		if r.err != nil {
			l.log.Warn("skipping essay", zap.String("file", src.name), zap.Error(r.err))
			errs = multierr.Append(errs, r.err)
			continue
		}
		if prev, ok := owner[r.essay.Slug]; ok && !prev.seed {
			err := fmt.Errorf("%s: slug %q already used by %s", src.name, r.essay.Slug, prev.name)
			l.log.Warn("skipping essay", zap.String("file", src.name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		bySlug[r.essay.Slug] = r.essay
		owner[r.essay.Slug] = src
	}

	ordered := make([]*content.Essay, 0, len(bySlug))
	for _, e := range bySlug {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if da, db := updated(a), updated(b); da != db {
			return da > db
		}
		return a.Slug < b.Slug
	})

	l.mu.Lock()
	l.bySlug = bySlug
	l.ordered = ordered
	l.loadedAt = time.Now()
	l.mu.Unlock()

	l.log.Info("library loaded",
		zap.Int("essays", len(ordered)),
		zap.Int("errors", len(multierr.Errors(errs))),
	)
	return errs
}

func (l *Library) load(src source) (*content.Essay, error) {
	f, err := src.open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.name, err)
	}
	defer f.Close()

	p, err := parser.ForFile(src.name, l.opts.Parser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.name, err)
	}
	e, err := p.Parse(f, src.name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.name, err)
	}
	if !src.seed {
		e.Source = src.name
	}
	if err := content.Validate(e); err != nil {
		return nil, fmt.Errorf("%s: %w", src.name, err)
	}
	content.Measure(e, l.opts.WordsPerMinute)
	return e, nil
}

// sources lists the seed essays followed by the content directory files.
func (l *Library) sources() ([]source, error) {
	var out []source
	seeds, err := fs.ReadDir(seedFS, "seed")
	if err != nil {
		return nil, fmt.Errorf("read seed essays: %w", err)
	}
	for _, d := range seeds {
		name := path.Join("seed", d.Name())
		out = append(out, source{
			name: name,
			open: func() (fs.File, error) { return seedFS.Open(name) },
			seed: true,
		})
	}

	if l.opts.ContentDir == "" {
		return out, nil
	}
	err = filepath.WalkDir(l.opts.ContentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != l.opts.ContentDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !parser.IsSupportedExtension(p) {
			return nil
		}
		out = append(out, source{
			name: p,
			open: func() (fs.File, error) { return os.Open(p) },
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan content dir: %w", err)
	}
	return out, nil
}

func updated(e *content.Essay) string {
	if e.Metadata.LastUpdated != "" {
		return e.Metadata.LastUpdated
	}
	return e.Metadata.Date
}

// Essay returns the essay published under slug.
func (l *Library) Essay(slug string) (*content.Essay, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("essay %q: %w", slug, content.ErrNotFound)
	}
	return e, nil
}

// Essays returns every published essay, most recently updated first.
func (l *Library) Essays() []*content.Essay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*content.Essay(nil), l.ordered...)
}

// LoadedAt reports when the last Load finished.
func (l *Library) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Site returns the static site content.
func (l *Library) Site() content.Site {
	return l.site
}

// Catalog returns the writings index: the configured catalog with every
// published essay listed under its category. Essays without a category go
// under the first one.
func (l *Library) Catalog() content.Catalog {
	catalog := make(content.Catalog, len(l.site.Catalog))
	for i, c := range l.site.Catalog {
		c.Items = append([]content.CatalogItem(nil), c.Items...)
		catalog[i] = c
	}

	for _, e := range l.Essays() {
		item := content.CatalogItem{
			Title:       e.Metadata.Title,
			Href:        "/writings/" + e.Slug,
			Abstract:    e.Metadata.Abstract,
			LastUpdated: updated(e),
			References:  e.Metadata.References,
			Backlinks:   e.Metadata.Backlinks,
		}
		if item.References == 0 {
			item.References = len(e.Footnotes)
		}

		idx := -1
		for i, c := range catalog {
			if e.Metadata.Category == "" || strings.EqualFold(c.Title, e.Metadata.Category) {
				idx = i
				break
			}
		}
		if idx < 0 {
			catalog = append(catalog, content.Category{Title: e.Metadata.Category})
			idx = len(catalog) - 1
		}
		if !hasHref(catalog[idx].Items, item.Href) {
			catalog[idx].Items = append(catalog[idx].Items, item)
		}
	}
	return catalog
}

func hasHref(items []content.CatalogItem, href string) bool {
	for _, it := range items {
		if it.Href == href {
			return true
		}
	}
	return false
}
