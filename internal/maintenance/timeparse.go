package maintenance

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mutualref/mutualref/internal/store"
)

const clockLayout = "02.01.2006 15:04"

var relativeRe = regexp.MustCompile(`^(\d+)([mhd])$`)

// ParseEndTime accepts one of three forms: absolute "DD.MM.YYYY HH:MM",
// same-day "HH:MM" (rolled to the next day when already past), or
// relative "<N>m|<N>h|<N>d". Anything else is invalid input.
func ParseEndTime(s string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(clockLayout, s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		end := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if end.Before(now) {
			end = end.AddDate(0, 0, 1)
		}
		return end, nil
	}
	if d, err := ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("time %q: %w", s, store.ErrInvalidInput)
}

// ParseDuration parses the compact relative grammar: 30m, 2h, 1d.
func ParseDuration(s string) (time.Duration, error) {
	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("duration %q: %w", s, store.ErrInvalidInput)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, fmt.Errorf("duration %q: %w", s, store.ErrInvalidInput)
	}
	switch m[2] {
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	default:
		return time.Duration(n) * 24 * time.Hour, nil
	}
}

// FormatDuration renders a duration for ban and maintenance notices.
func FormatDuration(d time.Duration) string {
	sec := int(d.Seconds())
	switch {
	case sec < 60:
		return fmt.Sprintf("%d sec", sec)
	case sec < 3600:
		return fmt.Sprintf("%d min", sec/60)
	case sec < 86400:
		return fmt.Sprintf("%d h", sec/3600)
	default:
		return fmt.Sprintf("%d d", sec/86400)
	}
}

// FormatClock renders an absolute timestamp the way operators enter it.
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(clockLayout)
}
