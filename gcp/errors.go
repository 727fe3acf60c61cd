package gcp

import (
	"errors"
	"fmt"
)

// MalformedResponseError reports a remote response that could not be parsed
// into the expected shape. For the analyze stage the raw response text is
// retained so it can be inspected and the stage retried without repeating
// the earlier stages.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("failed to parse product analysis: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsMalformedResponse reports whether err indicates an unparseable remote
// response.
func IsMalformedResponse(err error) bool {
	var mErr *MalformedResponseError
	return errors.As(err, &mErr)
}
