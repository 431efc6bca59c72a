package queue

import "errors"

var (
	// ErrInvalidConfiguration indicates a backend was misconfigured.
	ErrInvalidConfiguration = errors.New("invalid queue configuration")

	// ErrClosed indicates an operation against a closed Queue.
	ErrClosed = errors.New("queue is closed")
)

// DeadLetteredError wraps a job's final handler error after retries are
// exhausted and it has been moved to the dead-letter topic.
type DeadLetteredError struct {
	JobID   string
	Topic   string
	Attempt int
	Err     error
}

func (e *DeadLetteredError) Error() string {
	return "job " + e.JobID + " dead-lettered on topic " + e.Topic + ": " + e.Err.Error()
}

func (e *DeadLetteredError) Unwrap() error { return e.Err }

// FatalError marks a handler error as non-retryable: the job is
// dead-lettered on the first failure regardless of Config.MaxAttempts
// (spec §7 ExtractorNotFound: "Fatal for the job, no retry"). Handlers
// wrap their error with Fatal to signal this.
type FatalError struct {
	Err error
}

// Fatal wraps err so the queue dead-letters the job immediately instead of
// retrying it.
func Fatal(err error) error {
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }
