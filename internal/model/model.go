package model

import "time"

// SlotStatus is the review lifecycle of a single referral link slot.
// Submitted means the link is in but the screenshot is still pending.
type SlotStatus int

const (
	SlotEmpty SlotStatus = iota
	SlotSubmitted
	SlotUnderReview
	SlotAccepted
	SlotRejected
	SlotAlreadyMember
	SlotSkipped
)

func (s SlotStatus) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotSubmitted:
		return "submitted"
	case SlotUnderReview:
		return "under review"
	case SlotAccepted:
		return "accepted"
	case SlotRejected:
		return "rejected"
	case SlotAlreadyMember:
		return "already a member"
	case SlotSkipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether the slot can no longer advance on its own.
// Rejected is not terminal: a fresh submission restarts the cycle.
func (s SlotStatus) Terminal() bool {
	return s == SlotAccepted || s == SlotAlreadyMember || s == SlotSkipped
}

type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonTooManySponsors
	ReasonAlreadyInBot
	ReasonBadScreenshot
	ReasonOther
)

func (r RejectReason) String() string {
	switch r {
	case ReasonTooManySponsors:
		return "more than 6 sponsors"
	case ReasonAlreadyInBot:
		return "you were already in this bot"
	case ReasonBadScreenshot:
		return "invalid screenshot"
	case ReasonOther:
		return "other reason"
	}
	return "not specified"
}

type LinkSlot struct {
	URL        string
	Screenshot string
	Status     SlotStatus
	Reason     RejectReason
}

type HistoryEntry struct {
	At   time.Time
	Text string
}

// UserRecord is the per-identity record. Created on first contact,
// never deleted. All mutation goes through the store's Update.
type UserRecord struct {
	ID           int64
	Username     string
	FirstName    string
	JoinedAt     time.Time
	Slots        [2]LinkSlot
	Attempts     int
	AcceptedRefs int
	History      []HistoryEntry
}

// Slot returns the slot for a 1-based slot number.
func (u *UserRecord) Slot(num int) *LinkSlot {
	return &u.Slots[num-1]
}

type AuthorRole int

const (
	RoleUser AuthorRole = iota
	RoleStaff
)

type SupportMessage struct {
	At         time.Time
	Role       AuthorRole
	AuthorID   int64
	AuthorName string
	Text       string
}

// Partner is one of the two services users submit referral proof for.
type Partner struct {
	Name string
	URL  string
}

type MaintenanceStatus struct {
	Active bool
	EndsAt time.Time
	Reason string
}

type MaintenanceRecord struct {
	Actor     string
	StartedAt time.Time
	EndsAt    time.Time
	EndedAt   time.Time
	Reason    string
	Completed bool
}

type Stats struct {
	Users             int
	AcceptedRefs      int
	UsersWithAccepted int
	Blacklisted       int
	TempBanned        int
	Whitelisted       int
	Admins            int
	Moderators        int
	Maintenance       bool
}
