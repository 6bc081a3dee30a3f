package classifier

import "fmt"

// RecoverableError is a per-listing failure that is turned into the
// strategy's fail-open result instead of aborting the run.
type RecoverableError struct {
	Op  string
	Err error
}

func (e *RecoverableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}
