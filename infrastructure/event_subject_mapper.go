package infrastructure

import (
	"fmt"

	"tokenlottery/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeLotteryInitialized:
		return "lottery.initialized"
	case events.EventTypeCollectionInitialized:
		return "lottery.collection_initialized"
	case events.EventTypeTicketPurchased:
		return "lottery.ticket_purchased"
	case events.EventTypeTicketTransferred:
		return "lottery.ticket_transferred"
	case events.EventTypeRandomnessCommitted:
		return "lottery.randomness_committed"
	case events.EventTypeWinnerChosen:
		return "lottery.winner_chosen"
	case events.EventTypePrizeClaimed:
		return "lottery.prize_claimed"
	default:
		// Fallback for unknown event types
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "lottery.initialized":
		return events.EventTypeLotteryInitialized
	case "lottery.collection_initialized":
		return events.EventTypeCollectionInitialized
	case "lottery.ticket_purchased":
		return events.EventTypeTicketPurchased
	case "lottery.ticket_transferred":
		return events.EventTypeTicketTransferred
	case "lottery.randomness_committed":
		return events.EventTypeRandomnessCommitted
	case "lottery.winner_chosen":
		return events.EventTypeWinnerChosen
	case "lottery.prize_claimed":
		return events.EventTypePrizeClaimed
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to. They are listed
// explicitly so the event stream never captures lottery.cmd.* requests.
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"lottery.initialized",
		"lottery.collection_initialized",
		"lottery.ticket_purchased",
		"lottery.ticket_transferred",
		"lottery.randomness_committed",
		"lottery.winner_chosen",
		"lottery.prize_claimed",
	}
}
