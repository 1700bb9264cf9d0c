package bus

import (
	"sync"
	"sync/atomic"
)

// MemoryBus implements Notifier using in-memory channels.
// Useful for testing and single-process scenarios.
type MemoryBus struct {
	config Config

	mu     sync.RWMutex
	subs   map[string][]*memorySub
	groups map[string]map[string][]*memorySub // subject -> group -> subs
	closed atomic.Bool
}

type memorySub struct {
	subject string
	group   string
	ch      chan *Message
	closed  atomic.Bool
	bus     *MemoryBus
}

// NewMemoryBus creates a new in-memory notifier.
func NewMemoryBus(cfg Config) *MemoryBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &MemoryBus{
		config: cfg,
		subs:   make(map[string][]*memorySub),
		groups: make(map[string]map[string][]*memorySub),
	}
}

// Publish sends a message to all subscribers.
func (b *MemoryBus) Publish(subject string, data []byte) error {
	if err := ValidateSubject(subject); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	msg := &Message{
		Subject: subject,
		Data:    data,
	}

	b.deliverToSubscribers(subject, msg)
	b.deliverToGroups(subject, msg)

	return nil
}

// deliverToSubscribers sends to all regular subscribers. The read
// lock is held through the sends: Unsubscribe and Close only close a
// channel under the write lock, so no send can race a close. Sends
// are non-blocking, so holding the lock never stalls on a slow
// subscriber.
func (b *MemoryBus) deliverToSubscribers(subject string, msg *Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[subject] {
		if !sub.closed.Load() {
			select {
			case sub.ch <- msg:
			default:
				// Buffer full, drop. Polling covers the loss.
			}
		}
	}
}

// deliverToGroups sends to one subscriber per group, under the read
// lock for the same reason as deliverToSubscribers.
func (b *MemoryBus) deliverToGroups(subject string, msg *Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, gsubs := range b.groups[subject] {
		for _, sub := range gsubs {
			if sub.closed.Load() {
				continue
			}
			select {
			case sub.ch <- msg:
			default:
				continue
			}
			break
		}
	}
}

// Subscribe creates a subscription to a subject.
func (b *MemoryBus) Subscribe(subject string) (Subscription, error) {
	if err := ValidateSubject(subject); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		subject: subject,
		ch:      make(chan *Message, b.config.BufferSize),
		bus:     b,
	}

	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], sub)
	b.mu.Unlock()

	return sub, nil
}

// QueueSubscribe creates a group subscription.
func (b *MemoryBus) QueueSubscribe(subject, group string) (Subscription, error) {
	if err := ValidateSubject(subject); err != nil {
		return nil, err
	}
	if group == "" {
		return nil, ErrInvalidSubject
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		subject: subject,
		group:   group,
		ch:      make(chan *Message, b.config.BufferSize),
		bus:     b,
	}

	b.mu.Lock()
	if b.groups[subject] == nil {
		b.groups[subject] = make(map[string][]*memorySub)
	}
	b.groups[subject][group] = append(b.groups[subject][group], sub)
	b.mu.Unlock()

	return sub, nil
}

// Close shuts down the bus.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.closed.Store(true)
			close(sub.ch)
		}
	}
	for _, groups := range b.groups {
		for _, subs := range groups {
			for _, sub := range subs {
				sub.closed.Store(true)
				close(sub.ch)
			}
		}
	}

	b.subs = nil
	b.groups = nil

	return nil
}

// Messages returns the message channel.
func (s *memorySub) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *memorySub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.group == "" {
		s.bus.removeSub(s.subject, s)
	} else {
		s.bus.removeGroupSub(s.subject, s.group, s)
	}

	close(s.ch)
	return nil
}

// removeSub removes a regular subscription.
func (b *MemoryBus) removeSub(subject string, target *memorySub) {
	subs := b.subs[subject]
	for i, sub := range subs {
		if sub == target {
			b.subs[subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// removeGroupSub removes a group subscription.
func (b *MemoryBus) removeGroupSub(subject, group string, target *memorySub) {
	if b.groups[subject] == nil {
		return
	}
	subs := b.groups[subject][group]
	for i, sub := range subs {
		if sub == target {
			b.groups[subject][group] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
