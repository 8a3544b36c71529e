package events

import "context"

// Stream carrying milestone lifecycle events.
const StreamMilestones = "events:milestone"

// Event types
const (
	EventMilestoneCreated  = "milestone_created"
	EventMilestoneReleased = "milestone_released"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// Bus is both ends of a pub/sub transport.
type Bus interface {
	Publisher
	Subscriber
}
