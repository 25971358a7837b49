package room

import "time"

// Notifier announces room state changes. It is implemented by the transport layer
// and is fire-and-forget: delivery failures are the implementation's problem.
// It is defined here to break the import cycle between room and broadcast.
type Notifier interface {
	Notify(roomID string, event string, payload any)
}

// Scheduler runs fn once after delay. Scheduling a key that is already pending
// replaces the pending task.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string) bool
}

// IDGenerator produces room ids that are unique for the process lifetime.
type IDGenerator interface {
	Generate() string
}
