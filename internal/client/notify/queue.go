// Package notify keeps the short-lived user-facing messages produced by the
// session layer.
package notify

import (
	"sync"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
)

const DefaultTTL = 5 * time.Second

type Notification struct {
	ID        int64
	Message   string
	Kind      models.NotificationKind
	CreatedAt time.Time
}

// Queue is an expiring list of notifications. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	nextID  int64
	items   []Notification
	timers  map[int64]*time.Timer
	subs    map[int]func([]Notification)
	nextSub int
	closed  bool
	now     func() time.Time
}

// NewQueue returns a queue whose entries expire after ttl. A non-positive
// ttl selects DefaultTTL.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:    ttl,
		timers: map[int64]*time.Timer{},
		subs:   map[int]func([]Notification){},
		now:    time.Now,
	}
}

// Notify appends a message and returns its id. After Close it returns 0.
func (q *Queue) Notify(msg string, kind models.NotificationKind) int64 {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.nextID++
	id := q.nextID
	q.items = append(q.items, Notification{ID: id, Message: msg, Kind: kind, CreatedAt: q.now()})
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.Dismiss(id) })
	snap, subs := q.snapshotLocked()
	q.mu.Unlock()

	publish(subs, snap)
	return id
}

// Dismiss removes the notification with id. Unknown ids are ignored.
func (q *Queue) Dismiss(id int64) {
	q.mu.Lock()
	idx := -1
	for i, n := range q.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	snap, subs := q.snapshotLocked()
	q.mu.Unlock()

	publish(subs, snap)
}

// List returns the live notifications, oldest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.items...)
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unsubscribes.
func (q *Queue) Subscribe(fn func([]Notification)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close stops all pending timers and drops subscribers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.subs = map[int]func([]Notification){}
	q.closed = true
}

func (q *Queue) snapshotLocked() ([]Notification, []func([]Notification)) {
	snap := append([]Notification(nil), q.items...)
	subs := make([]func([]Notification), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	return snap, subs
}

func publish(subs []func([]Notification), snap []Notification) {
	for _, fn := range subs {
		fn(snap)
	}
}
