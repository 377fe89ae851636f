package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/internal/model"
)

func event(block, logIndex uint64) model.DomainEvent {
	return model.DomainEvent{
		Name:        model.PositionOpened,
		BlockNumber: block,
		LogIndex:    logIndex,
	}
}

func TestAggregateOrdersMostRecentFirst(t *testing.T) {
	events := []model.DomainEvent{
		event(100, 2),
		event(300, 0),
		event(100, 7),
		event(200, 5),
		event(300, 4),
	}

	sorted := aggregate(events, 0)

	require.Len(t, sorted, 5)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		descending := prev.BlockNumber > cur.BlockNumber ||
			(prev.BlockNumber == cur.BlockNumber && prev.LogIndex > cur.LogIndex)
		assert.True(t, descending, "events[%d] and events[%d] out of order", i-1, i)
	}
	assert.Equal(t, event(300, 4), sorted[0])
	assert.Equal(t, event(100, 2), sorted[4])
}

func TestAggregateTruncatesAfterSort(t *testing.T) {
	events := []model.DomainEvent{
		event(100, 0),
		event(500, 0),
		event(300, 0),
		event(400, 0),
	}

	got := aggregate(events, 2)

	require.Len(t, got, 2)
	assert.Equal(t, uint64(500), got[0].BlockNumber)
	assert.Equal(t, uint64(400), got[1].BlockNumber)
}

func TestAggregateLimitLargerThanResult(t *testing.T) {
	events := []model.DomainEvent{event(1, 0), event(2, 0)}
	assert.Len(t, aggregate(events, 10), 2)
}

func TestAggregateZeroLimitKeepsAll(t *testing.T) {
	events := []model.DomainEvent{event(1, 0), event(2, 0), event(3, 0)}
	assert.Len(t, aggregate(events, 0), 3)
}
