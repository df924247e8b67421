package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventFilters(t *testing.T) {
	base := time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)
	batch := Batch{
		BatchID: "BATCH001",
		Events: []Event{
			{EventID: "evt-1", EventType: EventHarvest, ActorID: "farmer-1", Timestamp: base},
			{EventID: "evt-2", EventType: EventQualityTest, ActorID: "lab-1", Timestamp: base.Add(time.Hour)},
			{EventID: "evt-3", EventType: EventQualityTest, ActorID: "lab-2", Timestamp: base.Add(2 * time.Hour)},
		},
	}

	tests := batch.EventsByType(EventQualityTest)
	assert.Len(t, tests, 2)
	assert.Equal(t, "evt-2", tests[0].EventID)
	assert.Equal(t, "evt-3", tests[1].EventID)

	assert.Empty(t, batch.EventsByType(EventRetail))

	byActor := batch.EventsByActor("lab-1")
	assert.Len(t, byActor, 1)
	assert.Equal(t, "evt-2", byActor[0].EventID)

	assert.Empty(t, batch.EventsByActor("nobody"))
}

func TestTimelineSortsAscending(t *testing.T) {
	base := time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)
	batch := Batch{
		Events: []Event{
			{EventID: "evt-2", EventType: EventProcessing, Timestamp: base.Add(time.Hour), Description: "milled"},
			{EventID: "evt-1", EventType: EventHarvest, Timestamp: base, Description: "harvested"},
		},
	}

	entries := batch.Timeline()
	assert.Len(t, entries, 2)
	assert.Equal(t, EventHarvest, entries[0].EventType)
	assert.Equal(t, EventProcessing, entries[1].EventType)
	assert.True(t, entries[0].Timestamp.Before(entries[1].Timestamp))
}
