package scheduling_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaccine-reservation-api/internal/scheduling"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"03-15-2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"12-31-1999", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"02-29-2024", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true}, // leap day
		{"02-29-2023", time.Time{}, false},                                 // not a leap year
		{"13-01-2025", time.Time{}, false},
		{"00-10-2025", time.Time{}, false},
		{"01-32-2025", time.Time{}, false},
		{"1-02-2025", time.Time{}, false},
		{"01-2-2025", time.Time{}, false},
		{"01-02-25", time.Time{}, false},
		{"2025-01-02", time.Time{}, false},
		{"01/02/2025", time.Time{}, false},
		{"01-02-2025x", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := scheduling.ParseDate(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, scheduling.ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	d, err := scheduling.ParseDate("07-04-2026")
	require.NoError(t, err)
	require.Equal(t, "07-04-2026", scheduling.FormatDate(d))
}
