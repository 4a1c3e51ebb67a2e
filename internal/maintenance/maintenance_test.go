package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/store"
)

func TestActivateDeactivate(t *testing.T) {
	c := New()
	end := time.Now().Add(30 * time.Minute)

	c.Activate(end, "upgrade", "console")
	st := c.Status()
	assert.True(t, st.Active)
	assert.Equal(t, end, st.EndsAt)
	assert.Equal(t, "upgrade", st.Reason)

	require.True(t, c.Deactivate("console"))
	st = c.Status()
	assert.False(t, st.Active)
	assert.Empty(t, st.Reason)

	hist := c.History(0)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Completed)
	assert.False(t, hist[0].EndedAt.IsZero())
}

func TestDeactivateIdempotent(t *testing.T) {
	c := New()
	c.Activate(time.Now().Add(time.Hour), "", "console")
	require.True(t, c.Deactivate("console"))

	// Second deactivate must not touch history again.
	before := c.History(0)[0].EndedAt
	require.False(t, c.Deactivate("console"))
	assert.Equal(t, before, c.History(0)[0].EndedAt)
	assert.False(t, c.Status().Active)
}

func TestReactivateOverwrites(t *testing.T) {
	c := New()
	c.Activate(time.Now().Add(time.Hour), "first", "a")
	c.Activate(time.Now().Add(2*time.Hour), "second", "b")

	st := c.Status()
	assert.Equal(t, "second", st.Reason)

	hist := c.History(10)
	require.Len(t, hist, 2)
	assert.Equal(t, "second", hist[0].Reason) // newest first
	assert.Equal(t, "first", hist[1].Reason)
}

func TestHistoryCap(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.Activate(time.Now().Add(time.Hour), "", "console")
		c.Deactivate("console")
	}
	assert.Len(t, c.History(3), 3)
	assert.Len(t, c.History(0), 5)
}

func TestParseEndTime(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"absolute", "31.12.2026 23:59", time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)},
		{"same day ahead", "22:00", time.Date(2026, 8, 30, 22, 0, 0, 0, time.UTC)},
		{"same day past rolls over", "09:30", time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)},
		{"relative minutes", "30m", now.Add(30 * time.Minute)},
		{"relative hours", "2h", now.Add(2 * time.Hour)},
		{"relative days", "1d", now.Add(24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndTime(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEndTimeInvalid(t *testing.T) {
	now := time.Now()
	for _, input := range []string{"", "soon", "30x", "0m", "12-31-2026 10:00"} {
		_, err := ParseEndTime(input, now)
		assert.ErrorIs(t, err, store.ErrInvalidInput, "input %q", input)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "47 sec", FormatDuration(47*time.Second))
	assert.Equal(t, "30 min", FormatDuration(30*time.Minute))
	assert.Equal(t, "2 h", FormatDuration(2*time.Hour))
	assert.Equal(t, "1 d", FormatDuration(36*time.Hour))
}
