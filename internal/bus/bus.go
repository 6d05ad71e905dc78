package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mculink/mculink-core/internal/infrastructure/mqtt"
)

// Sentinel errors for bus operations.
var (
	ErrEmptyKey   = errors.New("channel key cannot be empty")
	ErrNilHandler = errors.New("handler cannot be nil")
	ErrClosed     = errors.New("bus is closed")
)

// Handler receives the raw payload of a channel message.
//
// Handlers run on the transport's delivery goroutine and must not block.
type Handler func(payload []byte)

// Bus is the channel abstraction relay sessions depend on.
type Bus interface {
	// Subscribe registers handler for messages published to key. The
	// returned Subscription must be cancelled when the subscriber is done.
	Subscribe(key string, handler Handler) (*Subscription, error)

	// Publish sends payload to every subscriber of key, local and remote.
	Publish(key string, payload []byte) error
}

// Transport is the broker surface the bus needs. *mqtt.Client satisfies it.
type Transport interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the minimal logging interface the bus uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MQTTBus implements Bus over a shared MQTT connection.
//
// One broker subscription is held per active key regardless of how many
// local subscribers share it; delivery fans out in-process.
type MQTTBus struct {
	transport Transport
	topics    mqtt.Topics
	qos       byte
	logger    Logger

	mu       sync.Mutex
	channels map[string]*channel
	closed   bool
}

// channel tracks the local subscribers of one key.
type channel struct {
	subs map[*Subscription]Handler
}

// Subscription represents one subscriber's interest in a channel key.
type Subscription struct {
	bus  *MQTTBus
	key  string
	once sync.Once
}

// Key returns the channel key this subscription listens on.
func (s *Subscription) Key() string { return s.key }

// Cancel releases the subscription. Safe to call more than once; only the
// first call has effect.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.drop(s)
	})
}

// New builds a bus on top of transport. Messages are published at qos.
func New(transport Transport, qos byte, logger Logger) *MQTTBus {
	return &MQTTBus{
		transport: transport,
		qos:       qos,
		logger:    logger,
		channels:  make(map[string]*channel),
	}
}

// Subscribe registers handler for key, creating the broker subscription if
// this is the key's first local subscriber.
func (b *MQTTBus) Subscribe(key string, handler Handler) (*Subscription, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{bus: b, key: key}

	ch, ok := b.channels[key]
	if !ok {
		ch = &channel{subs: make(map[*Subscription]Handler)}
		topic := b.topics.AccountChannel(key)
		if err := b.transport.Subscribe(topic, b.qos, b.dispatchFor(key)); err != nil {
			return nil, fmt.Errorf("subscribing channel %s: %w", key, err)
		}
		b.channels[key] = ch
		b.logger.Debug("channel opened", "key", key, "topic", topic)
	}
	ch.subs[sub] = handler

	return sub, nil
}

// Publish sends payload on key's channel.
func (b *MQTTBus) Publish(key string, payload []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := b.transport.Publish(b.topics.AccountChannel(key), payload, b.qos, false); err != nil {
		return fmt.Errorf("publishing to channel %s: %w", key, err)
	}
	return nil
}

// Close cancels all subscriptions and rejects further use.
func (b *MQTTBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	keys := make([]string, 0, len(b.channels))
	for key := range b.channels {
		keys = append(keys, key)
	}
	b.channels = make(map[string]*channel)
	b.mu.Unlock()

	for _, key := range keys {
		if err := b.transport.Unsubscribe(b.topics.AccountChannel(key)); err != nil {
			b.logger.Warn("unsubscribe during close failed", "key", key, "error", err)
		}
	}
}

// SubscriberCount returns the number of local subscribers on key.
func (b *MQTTBus) SubscriberCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.channels[key]; ok {
		return len(ch.subs)
	}
	return 0
}

// dispatchFor builds the transport handler that fans one key's messages out
// to its local subscribers.
func (b *MQTTBus) dispatchFor(key string) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		b.mu.Lock()
		ch, ok := b.channels[key]
		if !ok {
			b.mu.Unlock()
			return nil
		}
		handlers := make([]Handler, 0, len(ch.subs))
		for _, h := range ch.subs {
			handlers = append(handlers, h)
		}
		b.mu.Unlock()

		// Invoke outside the lock so handlers may subscribe or cancel.
		for _, h := range handlers {
			h(payload)
		}
		return nil
	}
}

// drop removes sub from its channel, unsubscribing from the broker when the
// last local subscriber leaves.
func (b *MQTTBus) drop(sub *Subscription) {
	b.mu.Lock()
	ch, ok := b.channels[sub.key]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(ch.subs, sub)
	last := len(ch.subs) == 0
	if last {
		delete(b.channels, sub.key)
	}
	b.mu.Unlock()

	if last {
		topic := b.topics.AccountChannel(sub.key)
		if err := b.transport.Unsubscribe(topic); err != nil {
			b.logger.Warn("unsubscribe failed", "key", sub.key, "error", err)
		}
		b.logger.Debug("channel closed", "key", sub.key, "topic", topic)
	}
}
