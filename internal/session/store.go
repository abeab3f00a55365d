package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradescope/internal/logger"
	"tradescope/internal/viewport"
)

// Store keeps sessions in memory and evicts idle ones.
type Store struct {
	infer Inference
	vcfg  viewport.Config
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store. A ttl of zero disables eviction.
func NewStore(infer Inference, vcfg viewport.Config, ttl time.Duration) *Store {
	return &Store{
		infer:    infer,
		vcfg:     vcfg,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.infer, st.vcfg, st.now())
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	logger.Debugf("session %s created", s.id)
	return s
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(st.now())
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the ttl. Sessions with a call
// in flight are kept.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		touched, busy := s.idleSince()
		if busy || touched.After(cutoff) {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	if removed > 0 {
		logger.Infof("session janitor evicted %d idle sessions, %d remain", removed, len(st.sessions))
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (st *Store) Run(ctx context.Context) error {
	if st.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := st.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st.Sweep()
		}
	}
}
