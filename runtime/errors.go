package runtime

import (
	"fmt"
	"strings"
)

// ValidationError aggregates pre-run violations. Start() returns it inside
// the Result error list; nothing executes once validation fails.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sequence validation failed: %s", strings.Join(e.Violations, "; "))
}

// InstrumentNotFoundError names the missing instrument and enumerates what
// is registered, so a typo in a block parameter is diagnosable from the log.
type InstrumentNotFoundError struct {
	Name      string
	Available []string
}

func (e *InstrumentNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("instrument %q not found (no instruments registered)", e.Name)
	}
	return fmt.Sprintf("instrument %q not found, available: %s", e.Name, strings.Join(e.Available, ", "))
}

// CapabilityError reports an instrument that exists but lacks the method a
// block needs.
type CapabilityError struct {
	Instrument string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("instrument %q does not support %s", e.Instrument, e.Capability)
}

// BlockError wraps a block failure with its position in the sequence.
type BlockError struct {
	Index int
	Name  string
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }
