package match

import (
	"ircheck/internal/app/domain/irc"
)

// AssertionError carries the diff explanation of a failed message
// expectation. Tests fail deliberately with this; everything else the
// harness surfaces is an infrastructure error.
type AssertionError struct {
	Diff string
}

func (e *AssertionError) Error() string {
	return e.Diff
}

// Assert turns a non-empty diff into an *AssertionError.
func Assert(msg *irc.Message, want Expect) error {
	if diff := Diff(msg, want); diff != "" {
		return &AssertionError{Diff: diff}
	}
	return nil
}
