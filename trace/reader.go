package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Reader decodes events one by one.
type Reader struct {
	r       io.Reader
	dec     *cbor.Decoder
	session string
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, dec: decMode.NewDecoder(r)}
}

// Open returns a Reader for the trace file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f), nil
}

// FilterSession limits Next to events of sessions whose ID starts with id.
// Empty matches all.
func (r *Reader) FilterSession(id string) {
	r.session = id
}

// Next returns the next matching event, or io.EOF at the end.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return Event{}, fmt.Errorf("trace: truncated event: %w", err)
			}
			return Event{}, err
		}
		if !strings.HasPrefix(event.Session, r.session) {
			continue
		}
		return event, nil
	}
}

// ReadAll returns every remaining matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// Close closes the underlying reader if it is an io.Closer.
func (r *Reader) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Format renders an event as one human readable line.
func Format(e Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %-7s", e.Timestamp.Format("15:04:05.000000"), shortID(e.Session), e.Kind)
	if e.Peer != "" {
		fmt.Fprintf(&sb, " peer=%s", e.Peer)
	}
	if len(e.Command) > 0 {
		fmt.Fprintf(&sb, " cmd=% x", e.Command)
	}
	if len(e.Reply) > 0 {
		fmt.Fprintf(&sb, " reply=% x", e.Reply)
	}
	if len(e.Rows) > 0 {
		fmt.Fprintf(&sb, " rows=%v", e.Rows)
	}
	if e.Error != "" {
		fmt.Fprintf(&sb, " err=%q", e.Error)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
