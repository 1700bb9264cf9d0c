package bus

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Event kinds published on the bus.
const (
	EventSubmitted = "submitted"
	EventClaimed   = "claimed"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// SubjectFor returns the bus subject for an event kind.
func SubjectFor(kind string) string {
	return "dirqueue.task." + kind
}

// Event is a queue lifecycle notification. Events are advisory; the
// directory remains the source of truth and workers that miss an
// event still find the task on their next poll.
type Event struct {
	// Kind is one of the Event constants.
	Kind string `json:"kind"`

	// TaskID identifies the task.
	TaskID string `json:"task_id"`

	// Host is the host that produced the event.
	Host string `json:"host,omitempty"`

	// Time is when the event was produced.
	Time time.Time `json:"time"`
}

// Encode renders the event as its wire form.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an event from its wire form.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Message is a raw message received from the bus.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Data is the message payload.
	Data []byte
}

// Notifier delivers queue lifecycle events between hosts.
type Notifier interface {
	// Publish sends a message to all subscribers of a subject.
	Publish(subject string, data []byte) error

	// Subscribe creates a subscription to a subject.
	// All subscribers receive all messages.
	Subscribe(subject string) (Subscription, error)

	// QueueSubscribe creates a queue subscription.
	// Messages are load-balanced across members of the same group.
	QueueSubscribe(subject, group string) (Subscription, error)

	// Close shuts down the bus connection.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Messages returns the channel for incoming messages.
	// Channel is closed when the subscription ends.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// PublishEvent encodes and publishes a lifecycle event.
func PublishEvent(n Notifier, e *Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return n.Publish(SubjectFor(e.Kind), data)
}

// Config holds common bus configuration.
type Config struct {
	// BufferSize for subscription channels.
	// Default: 256
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
	}
}

// ValidateSubject checks if a subject is valid.
func ValidateSubject(subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	return nil
}
