package descriptor

import (
	"fmt"
	"strings"
)

// =============================================================================
// Validation Errors
// =============================================================================

// ErrorKind is the machine-readable classification of a validation error.
type ErrorKind string

const (
	MissingField             ErrorKind = "MissingField"
	InvalidFormat            ErrorKind = "InvalidFormat"
	RangeViolation           ErrorKind = "RangeViolation"
	MutualExclusionViolation ErrorKind = "MutualExclusionViolation"
	DuplicateValue           ErrorKind = "DuplicateValue"
)

// ValidationError describes one violated invariant. Validation always
// collects every violation; callers can show a user all problems in one pass.
type ValidationError struct {
	// Path locates the offending field, e.g. "services[1].resources.cpuRequest".
	Path string `json:"path"`

	// Kind is the machine-readable error class.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable explanation.
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Kind)
}

// FormatErrors joins validation errors into a multi-line report, one error
// per line, in collection order.
func FormatErrors(errs []ValidationError) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// Contract Violations
// =============================================================================

// ContractViolation reports a programming error: a renderer was invoked with
// an unvalidated descriptor or incomplete options. This is fatal to the
// current call and must never be downgraded to a ValidationError.
type ContractViolation struct {
	// Op is the operation that detected the violation, e.g. "RenderCompose".
	Op string

	// Reason explains what contract was broken.
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Op, e.Reason)
}

// NewContractViolation creates a ContractViolation for the given operation.
func NewContractViolation(op, reason string) *ContractViolation {
	return &ContractViolation{Op: op, Reason: reason}
}
