// Package conversation tracks the per-identity dialogue state plus its
// data bag (the pending support-reply target, the pending maintenance
// end time). State is cleared on every terminal or cancelling
// transition; a /start always resets to Idle.
package conversation

import (
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	AwaitingRuleDecision
	CollectingLinks
	AwaitingLink1
	AwaitingLink2
	AwaitingAlreadyMemberChoice
	AwaitingScreenshot1
	AwaitingScreenshot2
	InSupportMessage
	InSupportReply

	// Staff data-entry states.
	AwaitingBanID
	AwaitingTempBanEntry
	AwaitingUnbanID
	AwaitingBlacklistAddID
	AwaitingBlacklistRemoveID
	AwaitingModeratorID
	AwaitingAdminID
	AwaitingWhitelistAddID
	AwaitingWhitelistRemoveID
	AwaitingMaintenanceTime
	AwaitingMaintenanceReason
)

type session struct {
	state          State
	replyTarget    int64
	maintenanceEnd time.Time
}

type Sessions struct {
	mu sync.Mutex
	m  map[int64]*session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*session)}
}

func (s *Sessions) State(id int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[id]; ok {
		return sess.state
	}
	return Idle
}

func (s *Sessions) SetState(id int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).state = st
}

// Clear drops the session entirely, data bag included.
func (s *Sessions) Clear(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *Sessions) SetReplyTarget(id, target int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).replyTarget = target
}

func (s *Sessions) ReplyTarget(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[id]; ok {
		return sess.replyTarget
	}
	return 0
}

func (s *Sessions) SetMaintenanceEnd(id int64, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).maintenanceEnd = end
}

func (s *Sessions) MaintenanceEnd(id int64) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[id]; ok {
		return sess.maintenanceEnd
	}
	return time.Time{}
}

func (s *Sessions) get(id int64) *session {
	sess, ok := s.m[id]
	if !ok {
		sess = &session{}
		s.m[id] = sess
	}
	return sess
}
