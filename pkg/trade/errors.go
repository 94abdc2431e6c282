package trade

import "fmt"

// ExternalCallError wraps any failure past validation: the limit-order API,
// the keystore, signing, submission or confirmation.
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

func external(op string, err error) error {
	return &ExternalCallError{Op: op, Err: err}
}
