package presexch

import (
	"fmt"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// UnsatisfiedDefinitionError reports why a presentation definition could not
// be satisfied. It matches oid4vcerr.ErrNoMatchingCredentials.
type UnsatisfiedDefinitionError struct {
	DefinitionID string
	// DescriptorID is the first input descriptor, in declared order, that no
	// credential satisfied. Empty when every descriptor matched but a
	// submission requirement failed.
	DescriptorID string
	// Requirement names the failing submission requirement, if any.
	Requirement string
	Reason      string
}

func (e *UnsatisfiedDefinitionError) Error() string {
	msg := fmt.Sprintf("presentation definition %q is not satisfied", e.DefinitionID)

	if e.Requirement != "" {
		msg += fmt.Sprintf(": submission requirement %q", e.Requirement)
	}

	if e.DescriptorID != "" {
		msg += fmt.Sprintf(": input descriptor %q", e.DescriptorID)
	}

	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *UnsatisfiedDefinitionError) Unwrap() error {
	return oid4vcerr.ErrNoMatchingCredentials
}
