// Package notify is the outbound side of the transport boundary.
// Delivery is best-effort: callers commit state first, then send, and
// treat failures as soft no-ops.
package notify

import (
	"context"

	"github.com/mutualref/mutualref/internal/command"
)

type Button struct {
	Label   string
	Command command.Command
}

type Menu struct {
	Rows [][]Button
}

// Row appends a row of buttons and returns the menu for chaining.
func (m *Menu) Row(buttons ...Button) *Menu {
	m.Rows = append(m.Rows, buttons)
	return m
}

type Photo struct {
	MediaRef string
	Caption  string
}

// MessageHandle identifies a previously sent message so its menu can be
// edited later. Zero value means "no handle".
type MessageHandle struct {
	ChatID    int64
	MessageID int64
}

type Dispatcher interface {
	SendText(ctx context.Context, id int64, text string, menu *Menu) error
	SendPhoto(ctx context.Context, id int64, photo Photo, menu *Menu) error
	SendPhotoGroup(ctx context.Context, id int64, photos []Photo) error
	EditMenu(ctx context.Context, handle MessageHandle, menu *Menu) error
}
