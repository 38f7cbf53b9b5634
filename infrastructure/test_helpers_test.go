package infrastructure

import (
	"context"
	"errors"

	"cardroom/domain/events"

	"github.com/redis/go-redis/v9"
)

// recordingPublisher captures published events
type recordingPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
}

func (m *recordingPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

type publishedMessage struct {
	subject string
	data    []byte
}

// fakeMessageClient stands in for a NATS connection
type fakeMessageClient struct {
	messages []publishedMessage
	err      error
}

func (f *fakeMessageClient) Publish(ctx context.Context, subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, publishedMessage{subject: subject, data: data})
	return nil
}

// fakeListPusher stands in for a redis client
type fakeListPusher struct {
	lists map[string][][]byte
	err   error
}

func newFakeListPusher() *fakeListPusher {
	return &fakeListPusher{lists: make(map[string][][]byte)}
}

func (f *fakeListPusher) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		data, ok := v.([]byte)
		if !ok {
			return redis.NewIntResult(0, errors.New("unexpected value type"))
		}
		f.lists[key] = append(f.lists[key], data)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}
