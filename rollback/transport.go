package rollback

import (
	"errors"
	"sync"
)

// MessageKind identifies the payload of a Message.
type MessageKind uint8

const (
	MsgInput MessageKind = iota + 1
	MsgChecksum
)

// Message is the unit exchanged between peers. Input messages carry the
// confirmed input of Player for Frame; checksum messages carry the sender's
// checksum of the confirmed state at Frame, with Player set to one of the
// sender's local handles.
type Message[I any] struct {
	Kind     MessageKind
	Player   PlayerHandle
	Frame    Frame
	Input    I
	Checksum uint64
}

// Transport is the opaque channel to the other peers. Delivery may be out of
// order and may have gaps. Poll must not block. A Poll or Send error means
// the session is lost.
type Transport[I any] interface {
	Send(msg Message[I]) error
	Poll() ([]Message[I], error)
	Close() error
}

var errLoopbackClosed = errors.New("loopback closed")

// LoopbackTransport connects sessions living in the same process.
type LoopbackTransport[I any] struct {
	mu     sync.Mutex
	peers  []*LoopbackTransport[I]
	inbox  []Message[I]
	held   []Message[I]
	paused bool
	closed bool
}

// NewLoopback returns n fully connected endpoints.
func NewLoopback[I any](n int) []*LoopbackTransport[I] {
	ends := make([]*LoopbackTransport[I], n)
	for i := range ends {
		ends[i] = &LoopbackTransport[I]{}
	}
	for i, end := range ends {
		for j, other := range ends {
			if i != j {
				end.peers = append(end.peers, other)
			}
		}
	}
	return ends
}

// Pause holds outgoing messages until Resume.
func (l *LoopbackTransport[I]) Pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
}

// Resume delivers held messages, newest first when reverse is set.
func (l *LoopbackTransport[I]) Resume(reverse bool) {
	l.mu.Lock()
	held := l.held
	l.held = nil
	l.paused = false
	l.mu.Unlock()

	if reverse {
		for i, j := 0, len(held)-1; i < j; i, j = i+1, j-1 {
			held[i], held[j] = held[j], held[i]
		}
	}
	for _, msg := range held {
		l.deliver(msg)
	}
}

// Inject queues msg as if a peer had sent it.
func (l *LoopbackTransport[I]) Inject(msg Message[I]) {
	l.mu.Lock()
	l.inbox = append(l.inbox, msg)
	l.mu.Unlock()
}

func (l *LoopbackTransport[I]) Send(msg Message[I]) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errLoopbackClosed
	}
	if l.paused {
		l.held = append(l.held, msg)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	l.deliver(msg)
	return nil
}

func (l *LoopbackTransport[I]) deliver(msg Message[I]) {
	for _, p := range l.peers {
		p.Inject(msg)
	}
}

func (l *LoopbackTransport[I]) Poll() ([]Message[I], error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errLoopbackClosed
	}
	msgs := l.inbox
	l.inbox = nil
	return msgs, nil
}

func (l *LoopbackTransport[I]) Close() error {
	l.mu.Lock()
	l.closed = true
	l.inbox = nil
	l.held = nil
	l.mu.Unlock()
	return nil
}
