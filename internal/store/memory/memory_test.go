package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

func TestEnsureCreatesOnce(t *testing.T) {
	s := New()
	u := s.Ensure(42, "alice", "Alice")
	assert.Equal(t, int64(42), u.ID)
	assert.False(t, u.JoinedAt.IsZero())

	// Second contact keeps the record and refreshes profile fields.
	again := s.Ensure(42, "alice_new", "")
	assert.Equal(t, u.JoinedAt, again.JoinedAt)
	assert.Equal(t, "alice_new", again.Username)
	assert.Equal(t, "Alice", again.FirstName)
}

func TestGetUnknown(t *testing.T) {
	s := New()
	_, err := s.Get(7)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePersists(t *testing.T) {
	s := New()
	s.Ensure(42, "alice", "Alice")

	require.NoError(t, s.Update(42, func(u *model.UserRecord) error {
		u.AcceptedRefs = 2
		u.History = append(u.History, model.HistoryEntry{Text: "x"})
		return nil
	}))

	u, err := s.Get(42)
	require.NoError(t, err)
	assert.Equal(t, 2, u.AcceptedRefs)
	assert.Len(t, u.History, 1)

	require.ErrorIs(t, s.Update(7, func(*model.UserRecord) error { return nil }), store.ErrNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	s.Ensure(42, "alice", "Alice")

	u, err := s.Get(42)
	require.NoError(t, err)
	u.AcceptedRefs = 99
	u.History = append(u.History, model.HistoryEntry{Text: "tampered"})

	fresh, err := s.Get(42)
	require.NoError(t, err)
	assert.Zero(t, fresh.AcceptedRefs)
	assert.Empty(t, fresh.History)
}

func TestList(t *testing.T) {
	s := New()
	s.Ensure(1, "a", "A")
	s.Ensure(2, "b", "B")
	assert.Len(t, s.List(), 2)
}

func TestSupportThreadIsCopied(t *testing.T) {
	s := New()
	s.AppendSupport(42, model.SupportMessage{Role: model.RoleUser, Text: "help"})
	s.AppendSupport(42, model.SupportMessage{Role: model.RoleStaff, Text: "on it"})

	thread := s.SupportThread(42)
	require.Len(t, thread, 2)
	thread[0].Text = "tampered"

	assert.Equal(t, "help", s.SupportThread(42)[0].Text)
	assert.Empty(t, s.SupportThread(7))
}
