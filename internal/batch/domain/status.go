package domain

// statusByEvent maps each event type to the batch status it produces. Any
// event type may follow any other; the supply chain is not modeled as a
// transition graph, which is a deliberate, tested policy decision.
var statusByEvent = map[EventType]BatchStatus{
	EventHarvest:     StatusHarvested,
	EventProcessing:  StatusProcessed,
	EventQualityTest: StatusTested,
	EventPackaging:   StatusPackaged,
	EventTransport:   StatusInTransit,
	EventRetail:      StatusRetailed,
}

// StatusForEvent derives the batch status produced by appending an event of
// the given type. Unknown types fail loudly instead of leaving the status
// silently unchanged.
func StatusForEvent(t EventType) (BatchStatus, error) {
	status, ok := statusByEvent[t]
	if !ok {
		return "", ErrInvalidEventType
	}
	return status, nil
}

// ValidEventType reports whether t names a known event type.
func ValidEventType(t EventType) bool {
	_, ok := statusByEvent[t]
	return ok
}
