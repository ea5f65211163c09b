package schedule

import (
	"sort"

	"billtracker/internal/core"
)

// DedupePayDays keeps one payday per day of month. On conflict the most
// recently saved entry wins: the higher ID, or the later position when IDs
// tie. The result is ordered by day.
func DedupePayDays(paydays []core.PayDay) []core.PayDay {
	byDay := make(map[int]int, len(paydays))
	out := make([]core.PayDay, 0, len(paydays))
	for _, p := range paydays {
		i, seen := byDay[p.Day]
		if !seen {
			byDay[p.Day] = len(out)
			out = append(out, p)
			continue
		}
		if p.ID >= out[i].ID {
			out[i] = p
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
