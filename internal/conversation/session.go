package conversation

import (
	"sync"

	"github.com/glebk/pizza-bot/internal/domain"
)

// Session is the per-user conversation state.
// Pointer fields are nil until the step that resolves them has run; they are
// replaced, never mutated in place, so a shallow copy is an independent snapshot.
type Session struct {
	State     State
	Page      int
	ProductID string

	Quote     *domain.DeliveryQuote
	Position  *domain.Coordinates
	CartTotal *int
	Fee       *int
	Method    domain.DeliveryMethod
	OrderID   string
}

// lockEntry serializes access to one user's session
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Store keeps sessions in memory keyed by user.
// Locks are reference counted and dropped once no caller holds them.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
	locks    map[int64]*lockEntry
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*lockEntry),
	}
}

func (s *Store) acquire(userID int64) *lockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locks[userID]
	if !ok {
		entry = &lockEntry{}
		s.locks[userID] = entry
	}
	entry.refs++
	return entry
}

func (s *Store) release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locks[userID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, userID)
	}
}

// WithSession runs fn on a copy of the user's session while holding the user's lock.
// A session is created on first use. The copy is stored back only if fn returns nil.
func (s *Store) WithSession(userID int64, fn func(*Session) error) error {
	entry := s.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		s.release(userID)
	}()

	s.mu.Lock()
	session := s.sessions[userID]
	s.mu.Unlock()

	if err := fn(&session); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[userID] = session
	s.mu.Unlock()
	return nil
}

// Get returns a snapshot of the user's session
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Len returns the number of known sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
