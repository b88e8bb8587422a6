package services

import (
	"sort"
	"time"
)

// DailyTargets liefert für heute und die folgenden days-1 Tage je Stunde aus
// hours einen Zielzeitpunkt zur vollen Stunde. Vergangene Zeitpunkte entfallen.
func DailyTargets(now time.Time, hours []int, days int) []time.Time {
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)

	var out []time.Time
	y, m, d := now.Date()
	for i := 0; i < days; i++ {
		for _, h := range sorted {
			t := time.Date(y, m, d+i, h, 0, 0, 0, now.Location())
			if t.After(now) {
				out = append(out, t)
			}
		}
	}
	return out
}
