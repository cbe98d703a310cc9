package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/reading"
	"go.uber.org/zap"
)

// StoreConfig bounds the session store.
type StoreConfig struct {
	TTL                 time.Duration
	MaxSessions         int
	CleanupInterval     time.Duration
	VisibilityThreshold float64
}

// Store is a thread-safe in-memory session registry with TTL eviction and a
// size cap. When full, creating a session evicts the least recently used one.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      StoreConfig
	log      *zap.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStore(cfg StoreConfig, log *zap.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.VisibilityThreshold <= 0 || cfg.VisibilityThreshold > 1 {
		cfg.VisibilityThreshold = reading.DefaultVisibilityThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		log:      log.With(zap.String("component", "sessions")),
		now:      time.Now,
	}
}

// Create starts a session on essay.
func (s *Store) Create(e *content.Essay) (*Session, error) {
	sess, err := newSession(e, s.cfg.VisibilityThreshold, s.now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.sessions) >= s.cfg.MaxSessions {
		s.evictOldestLocked()
	}
	s.sessions[sess.id] = sess
	s.log.Debug("session created", zap.String("session_id", sess.id), zap.String("slug", e.Slug))
	return sess, nil
}

// Get returns a live session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, content.ErrNotFound)
	}
	return sess, nil
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed()) > s.cfg.TTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if t := sess.lastUsed(); oldestID == "" || t.Before(oldest) {
			oldestID, oldest = id, t
		}
	}
	delete(s.sessions, oldestID)
	s.log.Debug("session evicted", zap.String("session_id", oldestID))
}

// Start runs the cleanup loop until ctx is cancelled or Stop is called.
func (s *Store) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					s.log.Info("expired sessions removed", zap.Int("count", n), zap.Int("live", s.Len()))
				}
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
