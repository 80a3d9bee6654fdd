package cmn

import "time"

// ToUTC promotes a naive timestamp to UTC on input, per §6: "All timestamps
// are UTC; naive timestamps are promoted to UTC on input."
func ToUTC(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	return t.UTC()
}

// DaysUntil returns the number of whole days, rounded up, between now and
// target, per §4.E: "N = ceil((to_timestamp - now) / 1 day)".
func DaysUntil(now, target time.Time) int {
	d := target.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
