// Package maintenance holds the global maintenance window and its
// append-only history.
package maintenance

import (
	"sync"
	"time"

	"github.com/mutualref/mutualref/internal/model"
)

type Controller struct {
	mu      sync.Mutex
	active  bool
	endsAt  time.Time
	reason  string
	history []model.MaintenanceRecord

	now func() time.Time
}

func New() *Controller {
	return &Controller{now: time.Now}
}

// Activate opens a maintenance window. Re-activating while a window is
// already open overwrites the current window and appends a fresh
// history entry.
func (c *Controller) Activate(endsAt time.Time, reason, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.endsAt = endsAt
	c.reason = reason
	c.history = append(c.history, model.MaintenanceRecord{
		Actor:     actor,
		StartedAt: c.now(),
		EndsAt:    endsAt,
		Reason:    reason,
	})
}

// Deactivate closes the window and marks the latest history entry
// completed with the real end time. Calling it while inactive is a
// no-op and reports false.
func (c *Controller) Deactivate(actor string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return false
	}
	if n := len(c.history); n > 0 {
		c.history[n-1].Completed = true
		c.history[n-1].EndedAt = c.now()
	}
	c.active = false
	c.endsAt = time.Time{}
	c.reason = ""
	return true
}

func (c *Controller) Status() model.MaintenanceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.MaintenanceStatus{Active: c.active, EndsAt: c.endsAt, Reason: c.reason}
}

// History returns up to n most recent records, newest first. Storage is
// never truncated; n caps display only.
func (c *Controller) History(n int) []model.MaintenanceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.history) {
		n = len(c.history)
	}
	out := make([]model.MaintenanceRecord, 0, n)
	for i := len(c.history) - 1; i >= len(c.history)-n; i-- {
		out = append(out, c.history[i])
	}
	return out
}
