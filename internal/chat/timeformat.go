package chat

import "time"

// FormatInstant renders a message timestamp for display relative to now.
// A timestamp from another year shows the time and full date, one from
// another month or day shows the time and abbreviated date, and one from
// today shows the time alone. Hours carry no leading zero and the meridiem
// is lowercase, e.g. "9:30am, Jun 01, 2023".
func FormatInstant(t, now time.Time) string {
	if t.Year() != now.Year() {
		return t.Format("3:04pm, Jan 02, 2006")
	}
	if t.Month() != now.Month() || t.Day() != now.Day() {
		return t.Format("3:04pm, Jan 02")
	}
	return t.Format("3:04pm")
}
