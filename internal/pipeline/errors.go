package pipeline

import "fmt"

// StageError wraps an error with the stage name it occurred in, so callers
// and logs can tell a fingerprint failure from a segmentation failure
// without string-matching the message.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error {
	return e.Err
}
