package infrastructure

import (
	"cardroom/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing
// Useful for the CLI and tests where events should not leave the process
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
