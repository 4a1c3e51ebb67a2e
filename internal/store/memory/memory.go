// Package memory is the authoritative volatile store. Records live for
// the process lifetime and are lost on restart.
package memory

import (
	"sync"
	"time"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

type Store struct {
	mu      sync.Mutex
	users   map[int64]*model.UserRecord
	locks   map[int64]*sync.Mutex
	support map[int64][]model.SupportMessage

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:   make(map[int64]*model.UserRecord),
		locks:   make(map[int64]*sync.Mutex),
		support: make(map[int64][]model.SupportMessage),
		now:     time.Now,
	}
}

// lockFor returns the per-identity mutex, creating it on first use.
// Staff review actions and the user's own conversation actions can race
// on the same record; the per-identity lock serializes them.
func (s *Store) lockFor(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Ensure creates the record on first contact and refreshes the profile
// fields on every call. It returns a copy of the current record.
func (s *Store) Ensure(id int64, username, firstName string) model.UserRecord {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		u = &model.UserRecord{ID: id, JoinedAt: s.now()}
		s.users[id] = u
	}
	s.mu.Unlock()

	if username != "" {
		u.Username = username
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	return cloneUser(u)
}

func (s *Store) Get(id int64) (model.UserRecord, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return model.UserRecord{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

// Update runs fn under the identity's lock. The record must exist.
// If fn returns an error the partial mutation is not rolled back; fn is
// expected to validate before mutating.
func (s *Store) Update(id int64, fn func(*model.UserRecord) error) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}
	return fn(u)
}

func (s *Store) List() []model.UserRecord {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	out := make([]model.UserRecord, 0, len(ids))
	for _, id := range ids {
		if u, err := s.Get(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func (s *Store) AppendSupport(id int64, msg model.SupportMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.support[id] = append(s.support[id], msg)
}

func (s *Store) SupportThread(id int64) []model.SupportMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.support[id]
	out := make([]model.SupportMessage, len(thread))
	copy(out, thread)
	return out
}

func cloneUser(u *model.UserRecord) model.UserRecord {
	c := *u
	c.History = make([]model.HistoryEntry, len(u.History))
	copy(c.History, u.History)
	return c
}
