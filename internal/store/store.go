package store

import (
	"context"
	"errors"
	"time"

	"github.com/mutualref/mutualref/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrProtected         = errors.New("protected identity")
	ErrPrivileged        = errors.New("cannot ban privileged identity")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid slot transition")
)

// UserStore holds one record per identity. Reads return copies;
// mutation is serialized per identity through Update.
type UserStore interface {
	Ensure(id int64, username, firstName string) model.UserRecord
	Get(id int64) (model.UserRecord, error)
	Update(id int64, fn func(*model.UserRecord) error) error
	List() []model.UserRecord
}

// SupportStore keeps the append-only per-identity support threads.
type SupportStore interface {
	AppendSupport(id int64, msg model.SupportMessage)
	SupportThread(id int64) []model.SupportMessage
}

// Archive is a best-effort durable journal for append-only data.
// Callers log and continue on error; volatile state stays authoritative.
type Archive interface {
	RecordEvent(ctx context.Context, identity int64, entry model.HistoryEntry) error
	RecordSupport(ctx context.Context, identity int64, msg model.SupportMessage) error
	RecordMaintenance(ctx context.Context, rec model.MaintenanceRecord) error
	CompleteMaintenance(ctx context.Context, endedAt time.Time) error
	Close() error
}
