package infrastructure

import (
	"errors"

	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// CompositePublisher fans every event out to a list of sinks.
// A failing sink does not stop delivery to the others.
type CompositePublisher struct {
	sinks []namedSink
}

type namedSink struct {
	name      string
	publisher interfaces.EventPublisher
}

// NewCompositePublisher creates an empty fan-out publisher
func NewCompositePublisher() *CompositePublisher {
	return &CompositePublisher{}
}

// Add registers a sink under name; nil publishers are ignored
func (c *CompositePublisher) Add(name string, publisher interfaces.EventPublisher) *CompositePublisher {
	if publisher == nil {
		return c
	}
	c.sinks = append(c.sinks, namedSink{name: name, publisher: publisher})
	return c
}

// Len returns the number of registered sinks
func (c *CompositePublisher) Len() int {
	return len(c.sinks)
}

// Publish delivers event to every sink and joins their errors
func (c *CompositePublisher) Publish(event events.Event) error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.publisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"sink":      sink.name,
				"eventType": event.Type(),
				"error":     err,
			}).Warn("Event sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
