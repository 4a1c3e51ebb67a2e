package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/store"
	"github.com/mutualref/mutualref/internal/store/memory"
)

func newTestConsole(t *testing.T) (*Console, *access.Gate, *maintenance.Controller) {
	t.Helper()
	users := memory.New()
	maint := maintenance.New()
	gate := access.NewGate(1, 99, maint)
	c := New(users, gate, maint, store.NopArchive{}, zerolog.Nop())
	return c, gate, maint
}

func TestMaintenanceRoundTrip(t *testing.T) {
	c, _, maint := newTestConsole(t)
	ctx := context.Background()

	out := c.Exec(ctx, "/maintenance_on 2h server upgrade")
	assert.Contains(t, out, "Maintenance mode ON")
	assert.Contains(t, out, "server upgrade")

	st := maint.Status()
	require.True(t, st.Active)
	assert.Equal(t, "server upgrade", st.Reason)

	out = c.Exec(ctx, "/maintenance_status")
	assert.Contains(t, out, "ON")
	assert.Contains(t, out, "server upgrade")

	out = c.Exec(ctx, "/maintenance_off")
	assert.Contains(t, out, "OFF")
	assert.False(t, maint.Status().Active)

	assert.Contains(t, c.Exec(ctx, "/maintenance_off"), "not active")
}

func TestMaintenanceOnAbsoluteDate(t *testing.T) {
	c, _, maint := newTestConsole(t)
	c.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	out := c.Exec(context.Background(), "/maintenance_on 31.12.2026 23:59 new year")
	assert.Contains(t, out, "Maintenance mode ON")

	st := maint.Status()
	require.True(t, st.Active)
	assert.Equal(t, "new year", st.Reason)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), st.EndsAt)
}

func TestMaintenanceOnInvalidTime(t *testing.T) {
	c, _, maint := newTestConsole(t)
	out := c.Exec(context.Background(), "/maintenance_on soon")
	assert.Contains(t, out, "Invalid time")
	assert.False(t, maint.Status().Active)
}

func TestWhitelistCommands(t *testing.T) {
	c, gate, _ := newTestConsole(t)
	ctx := context.Background()

	assert.Contains(t, c.Exec(ctx, "/whitelist_add 42"), "added")
	assert.True(t, gate.IsWhitelisted(42))

	list := c.Exec(ctx, "/whitelist_list")
	assert.Contains(t, list, "42")

	assert.Contains(t, c.Exec(ctx, "/whitelist_remove 42"), "removed")
	assert.False(t, gate.IsWhitelisted(42))

	assert.Contains(t, c.Exec(ctx, "/whitelist_remove 42"), "not in the whitelist")
	assert.Contains(t, c.Exec(ctx, "/whitelist_remove 99"), "cannot leave")
	assert.Contains(t, c.Exec(ctx, "/whitelist_add abc"), "Invalid ID")
}

func TestUnbanAll(t *testing.T) {
	c, gate, _ := newTestConsole(t)
	require.NoError(t, gate.Ban(42))
	require.NoError(t, gate.TempBan(43, time.Now().Add(time.Hour)))

	assert.Contains(t, c.Exec(context.Background(), "/unbanall"), "unbanned")
	assert.False(t, gate.IsBlacklisted(42))
	assert.False(t, gate.IsTempBanned(43))
}

func TestUnknownCommand(t *testing.T) {
	c, _, _ := newTestConsole(t)
	assert.Contains(t, c.Exec(context.Background(), "/frobnicate"), "Unknown command")
}

func TestRunReadsLines(t *testing.T) {
	c, gate, _ := newTestConsole(t)
	var out strings.Builder
	c.Run(context.Background(), strings.NewReader("/whitelist_add 42\n/help\n"), &out)

	assert.True(t, gate.IsWhitelisted(42))
	assert.Contains(t, out.String(), "CONSOLE COMMANDS")
}
