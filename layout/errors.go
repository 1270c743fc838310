// Package layout computes byte-exact layout trees for C++ records and
// renders them for transport to a display.
package layout

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrUnknownRecord indicates a record id is not part of the current session.
	ErrUnknownRecord = errors.New("layout: unknown record")

	// ErrNoRecords indicates an analysis discovered no complete records.
	ErrNoRecords = errors.New("layout: no records found")

	// ErrNoProvider indicates a session was created without a declaration provider.
	ErrNoProvider = errors.New("layout: no declaration provider")

	// ErrInvalidWire indicates serialized layout data is malformed.
	ErrInvalidWire = errors.New("layout: invalid serialized layout")
)

// DecodeError provides detailed information about serialized layout failures.
type DecodeError struct {
	Format  string // "json" or "msgpack"
	Path    string // Path of the offending node, e.g. "subFields[2]"
	Message string // Description of the error
	Err     error  // Underlying error, if any
}

func (e *DecodeError) Error() string {
	where := e.Path
	if where == "" {
		where = "root"
	}
	if e.Err != nil {
		return fmt.Sprintf("layout: decode %s at %s: %s: %v", e.Format, where, e.Message, e.Err)
	}
	return fmt.Sprintf("layout: decode %s at %s: %s", e.Format, where, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports every DecodeError as ErrInvalidWire.
func (e *DecodeError) Is(target error) bool { return target == ErrInvalidWire }
