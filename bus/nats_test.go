package bus

import (
	"errors"
	"os"
	"testing"
	"time"
)

// natsURL returns the NATS URL for testing, or skips the test when no
// server is reachable.
func natsURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4222"
	}

	if testing.Short() {
		t.Skip("skipping NATS test in short mode")
	}

	cfg := DefaultNATSConfig()
	cfg.URL = url
	cfg.ConnectTimeout = 2 * time.Second
	cfg.MaxReconnects = 0

	b, err := NewNATSBus(cfg)
	if err != nil {
		t.Skipf("skipping: NATS not available at %s: %v", url, err)
	}
	b.Close()

	return url
}

func newNATSBus(t *testing.T) *NATSBus {
	t.Helper()

	cfg := DefaultNATSConfig()
	cfg.URL = natsURL(t)
	b, err := NewNATSBus(cfg)
	if err != nil {
		t.Fatalf("NewNATSBus failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestNATSBusPublishSubscribe(t *testing.T) {
	b := newNATSBus(t)

	sub, err := b.Subscribe("dirqueue.test.submitted")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	e := &Event{Kind: EventSubmitted, TaskID: "1700000000_deadbeef", Host: "alpha", Time: time.Now()}
	data, _ := e.Encode()
	if err := b.Publish("dirqueue.test.submitted", data); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		got, err := DecodeEvent(msg.Data)
		if err != nil {
			t.Fatalf("DecodeEvent failed: %v", err)
		}
		if got.TaskID != e.TaskID || got.Host != "alpha" {
			t.Errorf("event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestNATSBusQueueGroupDeliversOnce(t *testing.T) {
	b := newNATSBus(t)

	sub1, err := b.QueueSubscribe("dirqueue.test.group", "workers")
	if err != nil {
		t.Fatalf("QueueSubscribe failed: %v", err)
	}
	defer sub1.Unsubscribe()
	sub2, err := b.QueueSubscribe("dirqueue.test.group", "workers")
	if err != nil {
		t.Fatalf("QueueSubscribe failed: %v", err)
	}
	defer sub2.Unsubscribe()

	if err := b.Publish("dirqueue.test.group", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := 0
	timeout := time.After(time.Second)
	for received == 0 {
		select {
		case <-sub1.Messages():
			received++
		case <-sub2.Messages():
			received++
		case <-timeout:
			t.Fatal("no group member received the message")
		}
	}

	// Give a stray duplicate time to show up.
	time.Sleep(100 * time.Millisecond)
	received += len(sub1.Messages()) + len(sub2.Messages())
	if received != 1 {
		t.Errorf("group delivered %d messages, want 1", received)
	}
}

func TestNATSBusPublishAfterClose(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = natsURL(t)
	b, err := NewNATSBus(cfg)
	if err != nil {
		t.Fatalf("NewNATSBus failed: %v", err)
	}

	b.Close()

	if err := b.Publish("dirqueue.test.closed", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
}

func TestNATSBusInvalidURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}

	cfg := DefaultNATSConfig()
	cfg.URL = "nats://invalid-host-that-does-not-exist:4222"
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.MaxReconnects = 0

	if _, err := NewNATSBus(cfg); err == nil {
		t.Error("expected error for unreachable server")
	}
}
