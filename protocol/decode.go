package protocol

import (
	"errors"
	"io"
)

// ReadCommand reads exactly one command from r.
// It reads the header byte, then exactly as many bytes as the header
// declares, issuing further reads until they arrive. A stream is free to
// split a command over any number of reads.
//
// A malformed header is returned together with ErrMalformedCommand and
// no trailing bytes are consumed. io.EOF before the header byte is
// reported as a TransportError wrapping io.EOF; EOF inside a command is
// io.ErrUnexpectedEOF.
func ReadCommand(r io.Reader) (Command, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Command{}, &TransportError{Op: "read", Err: err}
	}

	cmd := Command{Header: ParseHeader(b[0])}
	switch cmd.ID {
	case Get:
		// header only
	case Set:
		value, err := readField(r, 1)
		if err != nil {
			return cmd, err
		}
		cmd.Payload = value

	case GetBulk:
		length, err := readField(r, 1)
		if err != nil {
			return cmd, err
		}
		cmd.Length = int(length[0])

	case SetBulk:
		length, err := readField(r, 1)
		if err != nil {
			return cmd, err
		}
		cmd.Length = int(length[0])
		values, err := readField(r, cmd.Length)
		if err != nil {
			return cmd, err
		}
		cmd.Payload = values

	default:
		return cmd, Malformed(cmd.Header)
	}
	return cmd, nil
}

func readField(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &TransportError{Op: "read", Err: err}
	}
	return buf, nil
}
