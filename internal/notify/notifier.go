// Package notify delivers operator notifications off the decision path.
// Delivery is asynchronous behind a bounded queue: the decision engine posts
// and moves on, and a slow or dead channel can only ever cost dropped
// messages, never a delayed cycle.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-position-engine/internal/observability"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// DefaultQueueSize bounds the number of undelivered notifications.
const DefaultQueueSize = 64

// sendTimeout bounds one delivery attempt.
const sendTimeout = 10 * time.Second

type message struct {
	title string
	body  string
}

// Notifier fans notifications out to all senders from a single worker
// goroutine. Notify never blocks; when the queue is full the message is
// dropped and counted.
type Notifier struct {
	senders []Sender
	logger  *log.Logger
	queue   chan message

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier and starts its delivery worker. With no
// senders it still runs and drains the queue, so callers never need a nil
// check.
func NewNotifier(senders []Sender, queueSize int, logger *log.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = log.Default()
	}

	n := &Notifier{
		senders: senders,
		logger:  logger,
		queue:   make(chan message, queueSize),
		done:    make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Notify queues a notification for delivery. Never blocks.
func (n *Notifier) Notify(title, body string) {
	select {
	case n.queue <- message{title: title, body: body}:
	case <-n.done:
	default:
		observability.DefaultMetrics.NotificationsDropped.Inc()
		n.logger.Printf("notification dropped (queue full): %s", title)
	}
}

// Close stops the worker after draining queued messages.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)
		n.wg.Wait()
	})
}

func (n *Notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case msg := <-n.queue:
			n.dispatch(msg)
		case <-n.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case msg := <-n.queue:
					n.dispatch(msg)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one message to every sender. A sender failure is logged
// and does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(msg message) {
	for _, s := range n.senders {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := s.Send(ctx, msg.title, msg.body)
		cancel()
		if err != nil {
			n.logger.Printf("notify via %s failed: %v", s.Name(), err)
			continue
		}
		observability.DefaultMetrics.NotificationsSent.Inc()
	}
}
