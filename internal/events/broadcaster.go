package events

import (
	"sync"
	"time"
)

// OrderPlaced is emitted after an order commits
type OrderPlaced struct {
	OrderID    int64     `json:"order_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

// Broadcaster fans order events out to in-process subscribers (the
// websocket feed). Slow subscribers lose events rather than back-pressure
// the order path.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan OrderPlaced]struct{}
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan OrderPlaced]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function
func (b *Broadcaster) Subscribe() (<-chan OrderPlaced, func()) {
	ch := make(chan OrderPlaced, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking
func (b *Broadcaster) Publish(ev OrderPlaced) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
