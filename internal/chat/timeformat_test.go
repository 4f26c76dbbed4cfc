package chat

import (
	"testing"
	"time"
)

func TestFormatInstant(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		instant time.Time
		want    string
	}{
		{
			name:    "same day shows time only",
			instant: time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC),
			want:    "9:30am",
		},
		{
			name:    "same year different day shows abbreviated date",
			instant: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
			want:    "9:30am, Jun 01",
		},
		{
			name:    "same year different month shows abbreviated date",
			instant: time.Date(2024, 5, 15, 21, 5, 0, 0, time.UTC),
			want:    "9:05pm, May 15",
		},
		{
			name:    "different year shows full date",
			instant: time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC),
			want:    "9:30am, Jun 01, 2023",
		},
		{
			name:    "same day of month in a different year still shows the year",
			instant: time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC),
			want:    "10:00am, Jun 15, 2023",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatInstant(tc.instant, now); got != tc.want {
				t.Fatalf("FormatInstant(%v) = %q, want %q", tc.instant, got, tc.want)
			}
		})
	}
}
