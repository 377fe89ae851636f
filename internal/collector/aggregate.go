package collector

import (
	"sort"

	"perpscope/internal/model"
)

// aggregate orders events most recent first and truncates to limit. Within
// one block, the log emitted later in execution sorts first. Truncation
// always happens after the full sort, never per window.
func aggregate(events []model.DomainEvent, limit int) []model.DomainEvent {
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}
