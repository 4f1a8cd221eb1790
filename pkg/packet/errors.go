// Package packet implements a generic, declarative header-field codec for
// layered binary protocols. A protocol is described once by a Schema; the
// runtime Packet type handles dissection, field mutation, change tracking
// and re-serialization, with protocols nested via body composition.
package packet

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNeedData reports a buffer shorter than the currently active fixed
	// header. Streaming callers may retry once more bytes are available.
	ErrNeedData = errors.New("strix: need more data")

	// ErrBodyHandlerSet reports a direct write to the payload slot while a
	// nested packet is attached. Use SetUpper or Stack instead.
	ErrBodyHandlerSet = errors.New("strix: layer has a body handler, use SetUpper")

	// ErrUnknownField reports access to a field name the schema does not
	// declare and no dynamic field added.
	ErrUnknownField = errors.New("strix: unknown header field")

	// ErrUnknownCallback reports a cross-layer callback query for an id the
	// lower layer never registered.
	ErrUnknownCallback = errors.New("strix: unknown callback id")
)

// UnpackError reports a structurally malformed header. The decode attempt is
// fatal; the instance is in an unspecified state and must be discarded.
// ErrNeedData is wrapped when the failure is only missing bytes.
type UnpackError struct {
	Proto string
	Err   error
}

func (e *UnpackError) Error() string {
	return fmt.Sprintf("strix: unpack %s: %v", e.Proto, e.Err)
}

func (e *UnpackError) Unwrap() error { return e.Err }

// PackError reports a field value that cannot be encoded in its declared
// format, e.g. a 8-byte value assigned to a 2-byte field. This indicates a
// caller bug, not malformed input.
type PackError struct {
	Proto string
	Field string
	Err   error
}

func (e *PackError) Error() string {
	return fmt.Sprintf("strix: pack %s.%s: %v", e.Proto, e.Field, e.Err)
}

func (e *PackError) Unwrap() error { return e.Err }
