package queue

import (
	"log"
	"time"

	"github.com/lib/pq"
)

// Listener wraps the dedicated LISTEN connection. It must not come from the
// pool: a pooled connection would drop the subscription when recycled.
type Listener struct {
	pq *pq.Listener
}

func NewListener(url string) (*Listener, error) {
	l := pq.NewListener(url, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("[queue] listener event %d: %v", ev, err)
			}
		})
	if err := l.Listen(Channel); err != nil {
		l.Close()
		return nil, err
	}
	return &Listener{pq: l}, nil
}

// Notify yields once per wakeup. The payload is irrelevant; a notification
// only means "the queue may have work".
func (l *Listener) Notify() <-chan *pq.Notification {
	return l.pq.Notify
}

// Ping keeps the connection alive and forces a reconnect check.
func (l *Listener) Ping() error {
	return l.pq.Ping()
}

func (l *Listener) Close() error {
	return l.pq.Close()
}
