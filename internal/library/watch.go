package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/marginalia/internal/parser"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Start watches the content directory and reloads the library once changes
// have settled for the debounce interval. It is a no-op unless watching is
// enabled and a content directory is configured.
func (l *Library) Start(ctx context.Context) error {
	if !l.opts.Watch || l.opts.ContentDir == "" {
		return nil
	}
	if l.watcher != nil {
		return nil // Already running.
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	err = filepath.WalkDir(l.opts.ContentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", l.opts.ContentDir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	l.watcher = w
	l.cancel = cancel
	l.wg.Add(1)
	go l.watch(watchCtx)

	l.log.Info("watching content", zap.String("dir", l.opts.ContentDir), zap.Duration("debounce", l.opts.Debounce))
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (l *Library) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.wg.Wait()
	if err := l.watcher.Close(); err != nil {
		l.log.Warn("close watcher", zap.Error(err))
	}
	l.cancel = nil
	l.watcher = nil
}

func (l *Library) watch(ctx context.Context) {
	defer l.wg.Done()

	tick := l.opts.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastChange time.Time
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				l.addIfDir(ev.Name)
			}
			l.log.Debug("content changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			lastChange = time.Now()
			pending = true

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			if !pending || time.Since(lastChange) < l.opts.Debounce {
				continue
			}
			pending = false
			if err := l.Load(ctx); err != nil {
				l.log.Warn("reload finished with errors", zap.Error(err))
			}
		}
	}
}

// relevant reports whether an event can change the published set. Directory
// events carry no extension and are kept so new folders get watched.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == "" || parser.IsSupportedExtension(base)
}

func (l *Library) addIfDir(p string) {
	_ = filepath.WalkDir(p, func(sub string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := l.watcher.Add(sub); err != nil {
			l.log.Warn("watch directory", zap.String("dir", sub), zap.Error(err))
		}
		return nil
	})
}
