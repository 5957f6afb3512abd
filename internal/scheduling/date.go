package scheduling

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted textual date form: two-digit month,
// two-digit day, four-digit year.
const DateLayout = "01-02-2006"

// ParseDate validates s strictly against DateLayout. Impossible calendar
// values (month 13, day 32) are rejected, never clamped.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
