package recall

import (
	"errors"
	"fmt"
)

// ErrTaskFailure marks a Process call aborted by a failing batch.
var ErrTaskFailure = errors.New("recall: batch failed")

// BatchError reports which batch aborted a Process call.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("recall: batch %d failed: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Is makes every BatchError match ErrTaskFailure.
func (e *BatchError) Is(target error) bool {
	return target == ErrTaskFailure
}
