package auth

import (
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
)

// Broadcaster delivers session events to subscribers on one goroutine, in
// publish order. Publish never blocks.
type Broadcaster struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	queue    []models.Identity
	wake     chan struct{}
	done     chan struct{}
	closed   bool
	stopped  chan struct{}
}

func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		handlers: map[int]Handler{},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broadcaster) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish queues id (nil for sign-out). Events published after Close are
// dropped.
func (b *Broadcaster) Publish(id models.Identity) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, id)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery after the queued events have been handed out.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.stopped
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
	<-b.stopped
}

func (b *Broadcaster) loop() {
	defer close(b.stopped)
	for {
		select {
		case <-b.wake:
			b.drain()
		case <-b.done:
			b.drain()
			return
		}
	}
}

func (b *Broadcaster) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		hs := make([]Handler, 0, len(b.handlers))
		for i := 0; i < b.nextID; i++ {
			if h, ok := b.handlers[i]; ok {
				hs = append(hs, h)
			}
		}
		b.mu.Unlock()

		for _, h := range hs {
			h(ev)
		}
	}
}
