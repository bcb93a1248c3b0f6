package transport

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shineum/mailjet-transport/internal/email"
)

// Result is the outcome recorded on a SendEvent.
type Result int

const (
	// ResultPending is the state of an event before the API call completes.
	ResultPending Result = iota
	ResultSuccess
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	default:
		return "pending"
	}
}

// SendEvent describes one Send or BulkSend invocation. The same event is
// passed to the pre-send and post-send hooks.
type SendEvent struct {
	ID       string
	Messages []*email.Message

	Result           Result
	SentCount        int
	FailedRecipients []email.Address

	// Err holds the swallowed build, transport or rejection error of a
	// failed send.
	Err error

	cancelled bool
}

func newSendEvent(msgs []*email.Message) *SendEvent {
	return &SendEvent{
		ID:       uuid.NewString(),
		Messages: msgs,
		Result:   ResultPending,
	}
}

// Cancel aborts the send when called from a pre-send hook. Remaining
// listeners are not notified.
func (e *SendEvent) Cancel() {
	e.cancelled = true
}

// Cancelled reports whether a listener cancelled the event.
func (e *SendEvent) Cancelled() bool {
	return e.cancelled
}

// Listener observes sends performed by a Transport. Hooks run while the
// transport is busy and must not call back into it.
type Listener interface {
	BeforeSendPerformed(evt *SendEvent)
	SendPerformed(evt *SendEvent)
}

// ListenerFuncs adapts a pair of functions to Listener. Nil fields are
// skipped.
type ListenerFuncs struct {
	Before func(evt *SendEvent)
	After  func(evt *SendEvent)
}

func (f ListenerFuncs) BeforeSendPerformed(evt *SendEvent) {
	if f.Before != nil {
		f.Before(evt)
	}
}

func (f ListenerFuncs) SendPerformed(evt *SendEvent) {
	if f.After != nil {
		f.After(evt)
	}
}

// Dispatcher delivers send events to listeners in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds l to the end of the listener list.
func (d *Dispatcher) Register(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

func (d *Dispatcher) snapshot() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners...)
}

// DispatchBeforeSend notifies listeners until one cancels the event.
func (d *Dispatcher) DispatchBeforeSend(evt *SendEvent) {
	for _, l := range d.snapshot() {
		l.BeforeSendPerformed(evt)
		if evt.Cancelled() {
			return
		}
	}
}

// DispatchSendPerformed notifies every listener of the completed send.
func (d *Dispatcher) DispatchSendPerformed(evt *SendEvent) {
	for _, l := range d.snapshot() {
		l.SendPerformed(evt)
	}
}
