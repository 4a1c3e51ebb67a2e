// Package console is the operator command loop on stdin. It drives the
// same maintenance and access primitives as the admin panel, for the
// person running the process.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

const consoleActor = "console"

type Console struct {
	users   store.UserStore
	gate    *access.Gate
	maint   *maintenance.Controller
	archive store.Archive
	log     zerolog.Logger

	now func() time.Time
}

func New(users store.UserStore, gate *access.Gate, maint *maintenance.Controller, archive store.Archive, log zerolog.Logger) *Console {
	return &Console{
		users:   users,
		gate:    gate,
		maint:   maint,
		archive: archive,
		log:     log,
		now:     time.Now,
	}
}

// Run reads commands line by line until EOF or cancellation.
func (c *Console) Run(ctx context.Context, r io.Reader, w io.Writer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fmt.Fprintln(w, c.Exec(ctx, line))
	}
	if err := sc.Err(); err != nil {
		c.log.Warn().Err(err).Msg("console read failed")
	}
}

// Exec runs one command line and returns the human-readable result.
func (c *Console) Exec(ctx context.Context, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "/maintenance_on":
		return c.maintenanceOn(ctx, fields[1:])
	case "/maintenance_off":
		return c.maintenanceOff(ctx)
	case "/maintenance_status":
		return c.maintenanceStatus()
	case "/whitelist_add":
		return c.whitelistAdd(fields[1:])
	case "/whitelist_remove":
		return c.whitelistRemove(fields[1:])
	case "/whitelist_list":
		return c.whitelistList()
	case "/unbanall":
		c.gate.UnbanAll()
		return "✅ All users unbanned"
	case "/help":
		return helpText
	default:
		return fmt.Sprintf("❌ Unknown command: %s", fields[0])
	}
}

// maintenanceOn accepts the three time forms. An absolute date takes
// two tokens, so try the two-token parse before the one-token one.
func (c *Console) maintenanceOn(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /maintenance_on <time> [reason]"
	}

	now := c.now()
	end, err := maintenance.ParseEndTime(args[0], now)
	reasonArgs := args[1:]
	if len(args) >= 2 {
		if end2, err2 := maintenance.ParseEndTime(args[0]+" "+args[1], now); err2 == nil {
			end, err = end2, nil
			reasonArgs = args[2:]
		}
	}
	if err != nil {
		return "❌ Invalid time. Formats: 31.12.2026 23:59, 23:59, 30m, 2h, 1d"
	}

	reason := strings.Join(reasonArgs, " ")
	c.maint.Activate(end, reason, consoleActor)
	if aerr := c.archive.RecordMaintenance(ctx, model.MaintenanceRecord{
		Actor:     consoleActor,
		StartedAt: now,
		EndsAt:    end,
		Reason:    reason,
	}); aerr != nil {
		c.log.Warn().Err(aerr).Msg("archive maintenance failed")
	}

	out := fmt.Sprintf("✅ Maintenance mode ON until %s", maintenance.FormatClock(end))
	if reason != "" {
		out += "\n📝 Reason: " + reason
	}
	return out
}

func (c *Console) maintenanceOff(ctx context.Context) string {
	if !c.maint.Deactivate(consoleActor) {
		return "ℹ️ Maintenance mode is not active"
	}
	if err := c.archive.CompleteMaintenance(ctx, c.now()); err != nil {
		c.log.Warn().Err(err).Msg("archive maintenance completion failed")
	}
	return "✅ Maintenance mode OFF"
}

func (c *Console) maintenanceStatus() string {
	st := c.maint.Status()
	if !st.Active {
		return "✅ Maintenance mode: OFF"
	}
	out := "🔧 Maintenance mode: ON\n⏳ Until: " + maintenance.FormatClock(st.EndsAt)
	if st.Reason != "" {
		out += "\n📝 Reason: " + st.Reason
	}
	out += fmt.Sprintf("\n📋 Whitelisted: %d users", len(c.gate.Whitelist()))
	return out
}

func (c *Console) whitelistAdd(args []string) string {
	id, ok := parseID(args)
	if !ok {
		return "❌ Invalid ID format"
	}
	c.gate.WhitelistAdd(id)
	return fmt.Sprintf("✅ User %d added to the whitelist", id)
}

func (c *Console) whitelistRemove(args []string) string {
	id, ok := parseID(args)
	if !ok {
		return "❌ Invalid ID format"
	}
	switch err := c.gate.WhitelistRemove(id); {
	case err == nil:
		return fmt.Sprintf("✅ User %d removed from the whitelist", id)
	case errors.Is(err, store.ErrProtected):
		return fmt.Sprintf("🛡 User %d cannot leave the whitelist", id)
	default:
		return fmt.Sprintf("⚠️ User %d is not in the whitelist", id)
	}
}

func (c *Console) whitelistList() string {
	ids := c.gate.Whitelist()
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 WHITELIST (%d):", len(ids))
	for _, id := range ids {
		name := "no username"
		if u, err := c.users.Get(id); err == nil && u.Username != "" {
			name = "@" + u.Username
		}
		fmt.Fprintf(&sb, "\n  • %d (%s)", id, name)
	}
	return sb.String()
}

func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

const helpText = `AVAILABLE CONSOLE COMMANDS:

🔧 MAINTENANCE:
/maintenance_on <time> [reason] - enable maintenance mode
   Example: /maintenance_on 22:00
   Example: /maintenance_on 30m upgrade
   Example: /maintenance_on 31.12.2026 23:59 new year
/maintenance_off - disable maintenance mode
/maintenance_status - show maintenance status

📋 WHITELIST:
/whitelist_add <id> - add to the whitelist
/whitelist_remove <id> - remove from the whitelist
/whitelist_list - show the whitelist

🔨 BANS:
/unbanall - lift every ban`
