package relay

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrSlowConsumer = errors.New("outbound queue full")

const DefaultSendQueue = 64

// Outbound puts a bounded queue and a writer goroutine in front of a Conn so
// Send never blocks the caller. A peer that lets its queue fill up is cut
// off: the queue is discarded and the underlying connection closed.
type Outbound struct {
	conn    Conn
	queue   chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Bool
}

func NewOutbound(conn Conn, size int) *Outbound {
	if size <= 0 {
		size = DefaultSendQueue
	}
	o := &Outbound{
		conn:    conn,
		queue:   make(chan []byte, size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Outbound) ID() string { return o.conn.ID() }

func (o *Outbound) Send(data []byte) error {
	select {
	case <-o.done:
		return ErrNotConnected
	default:
	}
	select {
	case o.queue <- data:
		return nil
	default:
		o.dropped.Store(true)
		_ = o.Close()
		return ErrSlowConsumer
	}
}

// Close stops accepting frames. What is already queued is still written
// unless the peer was cut off for falling behind.
func (o *Outbound) Close() error {
	o.once.Do(func() { close(o.done) })
	return nil
}

// Stopped is closed once the writer has exited and the connection is closed.
func (o *Outbound) Stopped() <-chan struct{} { return o.stopped }

func (o *Outbound) run() {
	defer close(o.stopped)
	defer func() { _ = o.conn.Close() }()
	for {
		select {
		case <-o.done:
			o.flush()
			return
		case data := <-o.queue:
			if err := o.conn.Send(data); err != nil {
				o.dropped.Store(true)
				_ = o.Close()
				return
			}
		}
	}
}

func (o *Outbound) flush() {
	for !o.dropped.Load() {
		select {
		case data := <-o.queue:
			if o.conn.Send(data) != nil {
				return
			}
		default:
			return
		}
	}
}
