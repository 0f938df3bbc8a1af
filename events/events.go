package events

import "time"

// EventHandler receives the events of a transform. It is called from the
// goroutine raising the event and must not block.
type EventHandler func(Event)

// Event is one of the types below.
type Event interface {
	isEvent()
}

// ResolveStart indicates the pending set for a transform has been created and
// its resolution tasks scheduled.
type ResolveStart struct {
	ID    string
	Tasks int
	event
}

// Registered indicates a partial or helper was added to the engine's table.
type Registered struct {
	ID     string
	Target string
	Name   string
	event
}

// ResolveDone indicates every task in the pending set settled successfully.
type ResolveDone struct {
	ID       string
	Duration time.Duration
	event
}

// ResolveFailed indicates the pending set settled with an error. Every item
// rendered by the transform will fail with this error.
type ResolveFailed struct {
	ID    string
	Error error
	event
}

// RetryAttempt indicates a remote read failed and will be tried again after
// Sleep.
type RetryAttempt struct {
	ID      string
	Attempt int
	Sleep   time.Duration
	Error   error
	event
}

// MaxRetries indicates a remote read gave up after Count attempts.
type MaxRetries struct {
	ID    string
	Count int
	event
}

// ItemRendered indicates an item was compiled, evaluated and emitted.
type ItemRendered struct {
	ID   string
	Path string
	Size int
	event
}

// ItemSkipped indicates an item passed through unrendered, either because it
// carried no contents or because it did not match the filter.
type ItemSkipped struct {
	ID     string
	Path   string
	Reason string
	event
}

// ItemFailed indicates an item produced an error instead of output.
type ItemFailed struct {
	ID    string
	Path  string
	Error error
	event
}

// event is embedded to mark a type as an Event.
type event struct{}

func (event) isEvent() {}
