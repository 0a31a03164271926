package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCommand : unknown, reserved or engine-only command id
	ErrMalformedCommand = errors.New("protocol: malformed command")
)

// TransportError wraps a read or write failure of the underlying stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("protocol: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Malformed returns the error for a header that names no command the
// device accepts.
func Malformed(h Header) error {
	switch h.ID {
	case Read, Write:
		return fmt.Errorf("%w: %v is not implemented", ErrMalformedCommand, h.ID)
	case Ack:
		return fmt.Errorf("%w: ACK is a reply, not a command", ErrMalformedCommand)
	default:
		return fmt.Errorf("%w: unknown command id %d", ErrMalformedCommand, uint8(h.ID))
	}
}
