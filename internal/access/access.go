// Package access folds bans, roles, the whitelist, and the maintenance
// window into a single gate evaluated before any other handling.
package access

import (
	"sort"
	"sync"
	"time"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

// MaintenanceSource is the read side of the maintenance controller.
type MaintenanceSource interface {
	Status() model.MaintenanceStatus
}

type Verdict int

const (
	Allowed Verdict = iota
	DeniedBanned
	DeniedMaintenance
)

type Decision struct {
	Verdict     Verdict
	Maintenance model.MaintenanceStatus
}

type Gate struct {
	mu         sync.Mutex
	blacklist  map[int64]struct{}
	tempBans   map[int64]time.Time
	whitelist  map[int64]struct{}
	moderators map[int64]struct{}
	admins     map[int64]struct{}

	protectedID int64
	rootAdminID int64
	maint       MaintenanceSource
	now         func() time.Time
}

func NewGate(rootAdminID, protectedID int64, maint MaintenanceSource) *Gate {
	g := &Gate{
		blacklist:   make(map[int64]struct{}),
		tempBans:    make(map[int64]time.Time),
		whitelist:   make(map[int64]struct{}),
		moderators:  make(map[int64]struct{}),
		admins:      make(map[int64]struct{}),
		protectedID: protectedID,
		rootAdminID: rootAdminID,
		maint:       maint,
		now:         time.Now,
	}
	g.admins[rootAdminID] = struct{}{}
	g.whitelist[rootAdminID] = struct{}{}
	g.whitelist[protectedID] = struct{}{}
	return g
}

// Evaluate decides whether an inbound event for the identity may
// proceed. It is called fresh on every event: temp-ban expiry and the
// maintenance window change over time, so the result is never cached.
func (g *Gate) Evaluate(id int64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.healLocked(id)

	if _, ok := g.blacklist[id]; ok {
		return Decision{Verdict: DeniedBanned}
	}
	if until, ok := g.tempBans[id]; ok {
		if g.now().Before(until) {
			return Decision{Verdict: DeniedBanned}
		}
		delete(g.tempBans, id) // lazy auto-unban
	}

	st := g.maint.Status()
	if st.Active && !g.privilegedLocked(id) {
		return Decision{Verdict: DeniedMaintenance, Maintenance: st}
	}
	return Decision{Verdict: Allowed}
}

// healLocked enforces the protected-identity invariant: never banned,
// always whitelisted.
func (g *Gate) healLocked(id int64) {
	if id != g.protectedID {
		return
	}
	delete(g.blacklist, id)
	delete(g.tempBans, id)
	g.whitelist[id] = struct{}{}
}

func (g *Gate) privilegedLocked(id int64) bool {
	if _, ok := g.whitelist[id]; ok {
		return true
	}
	if _, ok := g.admins[id]; ok {
		return true
	}
	_, ok := g.moderators[id]
	return ok
}

// banGuardLocked runs the shared checks for every ban-shaped operation.
func (g *Gate) banGuardLocked(id int64) error {
	if id == g.protectedID {
		g.healLocked(id)
		return store.ErrProtected
	}
	if _, ok := g.admins[id]; ok {
		return store.ErrPrivileged
	}
	return nil
}

// Ban places the identity on the permanent blacklist.
func (g *Gate) Ban(id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.banGuardLocked(id); err != nil {
		return err
	}
	g.blacklist[id] = struct{}{}
	return nil
}

// TempBan bans the identity until the given time. Expiry is evaluated
// lazily by Evaluate, not by a timer.
func (g *Gate) TempBan(id int64, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.banGuardLocked(id); err != nil {
		return err
	}
	g.tempBans[id] = until
	return nil
}

// Unban removes both permanent and temporary bans. It reports whether
// the identity was banned at all.
func (g *Gate) Unban(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, inBlack := g.blacklist[id]
	_, inTemp := g.tempBans[id]
	delete(g.blacklist, id)
	delete(g.tempBans, id)
	return inBlack || inTemp
}

// UnbanAll clears every permanent and temporary ban. Whitelist and
// roles are untouched.
func (g *Gate) UnbanAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blacklist = make(map[int64]struct{})
	g.tempBans = make(map[int64]time.Time)
}

func (g *Gate) WhitelistAdd(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.whitelist[id] = struct{}{}
}

// WhitelistRemove refuses to drop the protected identity or the root
// admin.
func (g *Gate) WhitelistRemove(id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id == g.protectedID || id == g.rootAdminID {
		return store.ErrProtected
	}
	if _, ok := g.whitelist[id]; !ok {
		return store.ErrNotFound
	}
	delete(g.whitelist, id)
	return nil
}

func (g *Gate) Whitelist() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.whitelist))
	for id := range g.whitelist {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Gate) GrantModerator(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moderators[id] = struct{}{}
}

// GrantAdmin also whitelists: admins must keep access during
// maintenance.
func (g *Gate) GrantAdmin(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.admins[id] = struct{}{}
	g.whitelist[id] = struct{}{}
}

func (g *Gate) IsAdmin(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.admins[id]
	return ok
}

// IsModerator is true for moderators and admins alike.
func (g *Gate) IsModerator(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.admins[id]; ok {
		return true
	}
	_, ok := g.moderators[id]
	return ok
}

func (g *Gate) IsWhitelisted(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.whitelist[id]
	return ok
}

func (g *Gate) IsBlacklisted(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blacklist[id]
	return ok
}

func (g *Gate) IsTempBanned(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.tempBans[id]
	return ok && g.now().Before(until)
}

// Admins returns the admin set; used for staff notification fan-out.
func (g *Gate) Admins() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return keys(g.admins)
}

// Staff returns the union of admins and moderators.
func (g *Gate) Staff() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[int64]struct{}, len(g.admins)+len(g.moderators))
	for id := range g.admins {
		seen[id] = struct{}{}
	}
	for id := range g.moderators {
		seen[id] = struct{}{}
	}
	return keys(seen)
}

// Counts reports set sizes for the stats view.
func (g *Gate) Counts() (blacklisted, tempBanned, whitelisted, admins, moderators int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.blacklist), len(g.tempBans), len(g.whitelist), len(g.admins), len(g.moderators)
}

func keys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
