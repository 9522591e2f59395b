package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Topics published over the process-wide bus.
const (
	TopicSessionOpened = "session.opened"
	TopicSessionClosed = "session.closed"
	TopicImageQueued   = "image.queued"
	TopicImageSent     = "image.sent"
)

var (
	instance evbus.Bus
	once     sync.Once
)

// Get returns the process-wide event bus.
func Get() evbus.Bus {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent bus, mainly for tests.
func New() evbus.Bus {
	return evbus.New()
}

// Publish publishes an event on the process-wide bus.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe registers a synchronous handler on the process-wide bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// SubscribeAsync registers an asynchronous handler on the process-wide bus.
func SubscribeAsync(topic string, fn interface{}) error {
	return Get().SubscribeAsync(topic, fn, false)
}
