package queue

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrBufferFull is returned by Async.Publish when the event buffer is full.
var ErrBufferFull = errors.New("queue: event buffer full")

// Sender delivers one event.  *Publisher is the broker-backed Sender.
type Sender interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// Async buffers events and hands them to a Sender from a single
// goroutine, so Publish never waits on the broker.  Events are sent in
// the order they were queued.  Run must be running for events to leave
// the buffer.
type Async struct {
	next    Sender
	events  chan BookingEvent
	timeout time.Duration
	l       *log.Logger
}

// NewAsync returns an Async holding up to size events, giving each send
// at most timeout.
func NewAsync(next Sender, size int, timeout time.Duration, l *log.Logger) *Async {
	if l == nil {
		l = log.Default()
	}
	if size < 1 {
		size = 1
	}
	return &Async{next: next, events: make(chan BookingEvent, size), timeout: timeout, l: l}
}

// Publish queues ev.  The context is ignored; the send outlives the request.
func (a *Async) Publish(_ context.Context, ev BookingEvent) error {
	select {
	case a.events <- ev:
		return nil
	default:
		a.l.Printf("rabbitmq: dropping %s for booking %d: %v", ev.Type, ev.BookingID, ErrBufferFull)
		return ErrBufferFull
	}
}

// Run sends queued events until ctx is done, then flushes what is left in
// the buffer and returns.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return
		case ev := <-a.events:
			a.send(ev)
		}
	}
}

func (a *Async) flush() {
	for {
		select {
		case ev := <-a.events:
			a.send(ev)
		default:
			return
		}
	}
}

// send errors are logged by the Sender.
func (a *Async) send(ev BookingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	_ = a.next.Publish(ctx, ev)
}
