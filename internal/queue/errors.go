package queue

import "fmt"

// PartialPublishError reports a batch of which only the first Sent events
// reached the queue.
type PartialPublishError struct {
	Sent   int
	Unsent int
	Err    error
}

func (e *PartialPublishError) Error() string {
	return fmt.Sprintf("published %d of %d events: %v", e.Sent, e.Sent+e.Unsent, e.Err)
}

func (e *PartialPublishError) Unwrap() error {
	return e.Err
}
