package infrastructure

import (
	"fmt"
	"strings"

	"cardroom/domain/events"
)

// SubjectPrefix is the root of every subject this service publishes to
const SubjectPrefix = "cardroom"

// DomainEventStream is the JetStream stream holding published domain events
const DomainEventStream = "cardroom_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its subject, cardroom.<event_type>
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, event.Type())
}

// MapSubjectToEventType converts a subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	return events.EventType(strings.TrimPrefix(subject, SubjectPrefix+"."))
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	types := []events.EventType{
		events.EventTypeRoomChanged,
		events.EventTypeLobbyChanged,
		events.EventTypeRoundSettled,
		events.EventTypeBalanceChanged,
		events.EventTypeRefundIssued,
	}
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, fmt.Sprintf("%s.%s", SubjectPrefix, t))
	}
	return subjects
}
