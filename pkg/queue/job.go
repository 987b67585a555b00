package queue

import "context"

// Job consumes one message type from the queue.
type Job interface {
	// Name identifies the job for logging and worker registration.
	Name() string

	// Type is the message type this job subscribes to.
	Type() string

	// Handle processes one message payload.
	Handle(ctx context.Context, payload interface{}) error
}
