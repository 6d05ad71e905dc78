package bus

import (
	"errors"
	"sync"
	"testing"

	"github.com/mculink/mculink-core/internal/infrastructure/mqtt"
)

// fakeTransport records broker operations and lets tests inject deliveries.
type fakeTransport struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	subscribes   []string
	unsubscribes []string
	published    map[string][][]byte
	subscribeErr error
	publishErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers:  make(map[string]mqtt.MessageHandler),
		published: make(map[string][][]byte),
	}
}

func (f *fakeTransport) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[topic] = handler
	f.subscribes = append(f.subscribes, topic)
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	f.unsubscribes = append(f.unsubscribes, topic)
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	if f.publishErr != nil {
		f.mu.Unlock()
		return f.publishErr
	}
	f.published[topic] = append(f.published[topic], payload)
	handler := f.handlers[topic]
	f.mu.Unlock()

	// Loop published messages back like a broker would.
	if handler != nil {
		_ = handler(topic, payload)
	}
	return nil
}

func (f *fakeTransport) deliver(topic string, payload []byte) {
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler != nil {
		_ = handler(topic, payload)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Warn(msg string, args ...any)  {}

func accountTopic(key string) string {
	return mqtt.Topics{}.AccountChannel(key)
}

func TestSubscribe_SharesOneBrokerSubscription(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	var got1, got2 [][]byte
	sub1, err := b.Subscribe("usr-1", func(p []byte) { got1 = append(got1, p) })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	sub2, err := b.Subscribe("usr-1", func(p []byte) { got2 = append(got2, p) })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub1.Cancel()
	defer sub2.Cancel()

	if len(transport.subscribes) != 1 {
		t.Fatalf("broker subscribes = %d, want 1", len(transport.subscribes))
	}
	if transport.subscribes[0] != accountTopic("usr-1") {
		t.Errorf("subscribed topic = %q", transport.subscribes[0])
	}

	transport.deliver(accountTopic("usr-1"), []byte(`{"type":"ping"}`))

	if len(got1) != 1 || len(got2) != 1 {
		t.Errorf("fan-out delivered %d/%d messages, want 1/1", len(got1), len(got2))
	}
}

func TestSubscribe_Validation(t *testing.T) {
	b := New(newFakeTransport(), 1, nopLogger{})

	if _, err := b.Subscribe("", func([]byte) {}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("empty key error = %v, want ErrEmptyKey", err)
	}
	if _, err := b.Subscribe("usr-1", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v, want ErrNilHandler", err)
	}
}

func TestSubscribe_TransportFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.subscribeErr = errors.New("broker down")
	b := New(transport, 1, nopLogger{})

	if _, err := b.Subscribe("usr-1", func([]byte) {}); err == nil {
		t.Fatal("Subscribe() should propagate transport failure")
	}
	if b.SubscriberCount("usr-1") != 0 {
		t.Error("failed subscribe should not leave a channel behind")
	}
}

func TestCancel_LastSubscriberUnsubscribes(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	sub1, _ := b.Subscribe("usr-1", func([]byte) {})
	sub2, _ := b.Subscribe("usr-1", func([]byte) {})

	sub1.Cancel()
	if len(transport.unsubscribes) != 0 {
		t.Fatal("broker subscription should survive while a subscriber remains")
	}

	sub2.Cancel()
	if len(transport.unsubscribes) != 1 {
		t.Fatalf("broker unsubscribes = %d, want 1", len(transport.unsubscribes))
	}
	if b.SubscriberCount("usr-1") != 0 {
		t.Error("channel should be gone after last cancel")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	sub1, _ := b.Subscribe("usr-1", func([]byte) {})
	sub2, _ := b.Subscribe("usr-1", func([]byte) {})

	sub1.Cancel()
	sub1.Cancel()
	sub1.Cancel()

	// Repeated cancels of one subscription must not evict the other.
	if b.SubscriberCount("usr-1") != 1 {
		t.Errorf("SubscriberCount = %d, want 1", b.SubscriberCount("usr-1"))
	}
	if len(transport.unsubscribes) != 0 {
		t.Errorf("broker unsubscribes = %d, want 0", len(transport.unsubscribes))
	}

	sub2.Cancel()
	if len(transport.unsubscribes) != 1 {
		t.Errorf("broker unsubscribes = %d, want 1", len(transport.unsubscribes))
	}
}

func TestPublish_LoopsBackToLocalSubscribers(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	var got [][]byte
	sub, _ := b.Subscribe("usr-1", func(p []byte) { got = append(got, p) })
	defer sub.Cancel()

	if err := b.Publish("usr-1", []byte(`{"type":"getDevices"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("local delivery count = %d, want 1", len(got))
	}
	if string(got[0]) != `{"type":"getDevices"}` {
		t.Errorf("payload = %s", got[0])
	}
}

func TestPublish_KeyIsolation(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	var got [][]byte
	sub, _ := b.Subscribe("usr-a", func(p []byte) { got = append(got, p) })
	defer sub.Cancel()

	other, _ := b.Subscribe("usr-b", func([]byte) {})
	defer other.Cancel()

	if err := b.Publish("usr-b", []byte("x")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("subscriber on usr-a received %d messages for usr-b", len(got))
	}
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	_, _ = b.Subscribe("usr-1", func([]byte) {})
	b.Close()

	if len(transport.unsubscribes) != 1 {
		t.Errorf("Close() should unsubscribe active channels, got %d", len(transport.unsubscribes))
	}
	if _, err := b.Subscribe("usr-1", func([]byte) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() after Close = %v, want ErrClosed", err)
	}
	if err := b.Publish("usr-1", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close = %v, want ErrClosed", err)
	}
}

func TestCancel_AfterClose(t *testing.T) {
	transport := newFakeTransport()
	b := New(transport, 1, nopLogger{})

	sub, _ := b.Subscribe("usr-1", func([]byte) {})
	b.Close()

	// The channel map was already cleared; Cancel must be a no-op.
	sub.Cancel()
	if len(transport.unsubscribes) != 1 {
		t.Errorf("unsubscribes = %d, want 1", len(transport.unsubscribes))
	}
}
