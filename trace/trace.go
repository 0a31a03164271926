// Package trace records the protocol traffic of the emulator as a stream of
// CBOR encoded events, so a client's session can be inspected afterwards.
package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Kind classifies an event.
type Kind uint8

const (
	// KindOpen : a session was accepted
	KindOpen Kind = 0
	// KindCommand : a command was dispatched and answered
	KindCommand Kind = 1
	// KindError : a command failed, the session is being closed
	KindError Kind = 2
	// KindClose : a session ended
	KindClose Kind = 3
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "OPEN"
	case KindCommand:
		return "COMMAND"
	case KindError:
		return "ERROR"
	case KindClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Event is one trace record. Integer keys keep the file compact.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Session   string    `cbor:"2,keyasint"`
	Kind      Kind      `cbor:"3,keyasint"`
	Peer      string    `cbor:"4,keyasint,omitempty"`

	// Command holds the command bytes as read from the wire
	Command []byte `cbor:"5,keyasint,omitempty"`

	// Reply holds the bytes written back
	Reply []byte `cbor:"6,keyasint,omitempty"`

	// Rows is the channel snapshot after the command
	Rows []uint8 `cbor:"7,keyasint,omitempty"`

	Error string `cbor:"8,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

// Recorder receives trace events.
type Recorder interface {
	Record(event Event)
}

// Nop drops every event
type Nop struct{}

// Record does nothing
func (Nop) Record(Event) {}

// Writer encodes events to an io.Writer.
// It is safe for concurrent use by several sessions.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *cbor.Encoder
	closed bool
	err    error
}

// NewWriter returns a Writer encoding to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: encMode.NewEncoder(w)}
}

// Create opens path for appending and returns a Writer for it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// Record encodes one event. The first encoding error is kept and returned
// by Err; tracing never interrupts a session.
func (t *Writer) Record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.err != nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	t.err = t.enc.Encode(event)
}

// Err returns the first encoding error
func (t *Writer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close closes the underlying writer if it is an io.Closer.
// Later Record calls are ignored.
func (t *Writer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ Recorder = (*Writer)(nil)
var _ Recorder = Nop{}
