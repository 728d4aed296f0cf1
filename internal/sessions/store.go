// Package sessions provides bounded per-conversation transcript storage.
//
// A session is created on first use of its id and lives for the process
// lifetime unless explicitly cleared. Transcripts are capped; the oldest
// entries are dropped first.
package sessions

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCap is the maximum number of transcript entries per session.
	DefaultCap = 20

	// DefaultRecent is how many entries are surfaced as prompt context.
	DefaultRecent = 3

	// DefaultPreviewLen is the stored length of assistant replies.
	DefaultPreviewLen = 200

	// DefaultSessionID is used when the caller supplies no session id.
	DefaultSessionID = "default"
)

// EntryRole identifies the author of a transcript entry.
type EntryRole string

const (
	EntryUser      EntryRole = "user"
	EntryAssistant EntryRole = "assistant"
)

// Entry is one transcript line.
type Entry struct {
	Role EntryRole `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Store holds all session transcripts. The outer map is guarded by an
// RWMutex; each session carries its own mutex so append-then-cap is
// atomic per id while distinct sessions never serialize against each
// other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	cap        int
	previewLen int
}

type session struct {
	mu      sync.Mutex
	entries []Entry
}

// Option configures a Store.
type Option func(*Store)

// WithCap overrides the transcript cap.
func WithCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithPreviewLen overrides the assistant preview length.
func WithPreviewLen(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.previewLen = n
		}
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:   make(map[string]*session),
		cap:        DefaultCap,
		previewLen: DefaultPreviewLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize maps an absent session id to the default session.
func Normalize(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSessionID
	}
	return id
}

// getOrCreate returns the session for id, creating it on first use.
func (s *Store) getOrCreate(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[id] = sess
	return sess
}

// Append adds an entry to the session transcript, creating the session
// on first use. Assistant text is truncated to the preview length
// before storing. When the cap is exceeded the oldest entries are
// dropped.
func (s *Store) Append(id string, role EntryRole, text string) {
	if role == EntryAssistant {
		text = s.preview(text)
	}

	sess := s.getOrCreate(Normalize(id))
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.entries = append(sess.entries, Entry{Role: role, Text: text, At: time.Now()})
	if over := len(sess.entries) - s.cap; over > 0 {
		sess.entries = append([]Entry(nil), sess.entries[over:]...)
	}
}

// Recent returns the last k entries of the session in insertion order.
// A session that was never created yields an empty slice.
func (s *Store) Recent(id string, k int) []Entry {
	if k <= 0 {
		k = DefaultRecent
	}

	s.mu.RLock()
	sess, ok := s.sessions[Normalize(id)]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := len(sess.entries) - k
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(sess.entries)-start)
	copy(out, sess.entries[start:])
	return out
}

// Len reports the number of entries stored for the session.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	sess, ok := s.sessions[Normalize(id)]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.entries)
}

// Clear removes the session entirely. It reports whether the session
// existed, so the boundary can answer found/not-found; clearing an
// unknown id is not an error.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = Normalize(id)
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *Store) preview(text string) string {
	if len(text) <= s.previewLen {
		return text
	}
	cut := s.previewLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
