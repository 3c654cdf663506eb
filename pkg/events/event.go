package events

import (
	"context"
	"time"
)

const (
	TypeFilesDelivered  = "FILES_DELIVERED"
	TypeSearchCompleted = "SEARCH_COMPLETED"
	TypeHRIndexRebuilt  = "HR_INDEX_REBUILT"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "FILES_DELIVERED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher delivers events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// FilesDelivered is raised after the requested files were emailed.
func FilesDelivered(userEmail, transport string, fileNames []string) BaseEvent {
	return BaseEvent{
		Type: TypeFilesDelivered,
		Data: map[string]interface{}{
			"user_email": userEmail,
			"transport":  transport,
			"files":      fileNames,
		},
		OccurredAt: time.Now(),
	}
}

// SearchCompleted is raised after a discovery run stored a result set.
func SearchCompleted(userEmail, chatID, query string, results int) BaseEvent {
	return BaseEvent{
		Type: TypeSearchCompleted,
		Data: map[string]interface{}{
			"user_email": userEmail,
			"chat_id":    chatID,
			"query":      query,
			"results":    results,
		},
		OccurredAt: time.Now(),
	}
}

func HRIndexRebuilt(chunks int, trigger string) BaseEvent {
	return BaseEvent{
		Type:       TypeHRIndexRebuilt,
		Data:       map[string]interface{}{"chunks": chunks, "trigger": trigger},
		OccurredAt: time.Now(),
	}
}

// NoopPublisher drops every event. Used when no bus is reachable.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
