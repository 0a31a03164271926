package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"codebug/channels"
	"codebug/console"
	"codebug/protocol"
	"codebug/trace"

	"github.com/rs/zerolog"
)

// Listener hands out client sessions, one stream each.
type Listener interface {
	Accept() (io.ReadWriteCloser, error)
	Close() error
	Addr() string
}

// Options for InitializeSystem. Zero values are usable: no display,
// no logging, no trace, NACK disabled.
type Options struct {
	Console console.Console
	Log     *zerolog.Logger
	Trace   trace.Recorder

	// Nack writes protocol.NackByte for rejected commands
	Nack bool
}

// System definition: one emulated CodeBug.
// Every session served by the same System talks to the same device,
// so they share the channel store.
type System struct {
	Store *channels.Store

	console console.Console
	log     zerolog.Logger
	trace   trace.Recorder
	nack    bool

	// frames are drawn one at a time
	renderMu sync.Mutex

	// open sessions, closed on shutdown
	mu       sync.Mutex
	sessions map[io.Closer]struct{}
	wg       sync.WaitGroup
}

// InitializeSystem wires the emulated device around store.
func InitializeSystem(store *channels.Store, opts Options) *System {
	sys := new(System)
	sys.Store = store
	sys.console = opts.Console
	if sys.console == nil {
		sys.console = console.Null{}
	}
	sys.log = zerolog.Nop()
	if opts.Log != nil {
		sys.log = *opts.Log
	}
	sys.trace = opts.Trace
	if sys.trace == nil {
		sys.trace = trace.Nop{}
	}
	sys.nack = opts.Nack
	sys.sessions = make(map[io.Closer]struct{})
	return sys
}

// Execute dispatches one decoded command to the channel store and returns
// the reply bytes. The store is left untouched when an error is returned.
func (sys *System) Execute(cmd protocol.Command) ([]byte, error) {
	switch cmd.ID {
	case protocol.Get:
		v, err := sys.Store.Get(cmd.Channel)
		if err != nil {
			return nil, err
		}
		return []byte{protocol.ValueReply(v)}, nil

	case protocol.Set:
		if len(cmd.Payload) != 1 {
			return nil, fmt.Errorf("%w: SET carries %d value bytes", protocol.ErrMalformedCommand, len(cmd.Payload))
		}
		if err := sys.Store.Set(cmd.Channel, cmd.Payload[0], cmd.Or); err != nil {
			return nil, err
		}
		return []byte{protocol.AckByte}, nil

	case protocol.GetBulk:
		values, err := sys.Store.GetRange(cmd.Channel, cmd.Length)
		if err != nil {
			return nil, err
		}
		reply := make([]byte, len(values))
		for i, v := range values {
			reply[i] = protocol.ValueReply(v)
		}
		return reply, nil

	case protocol.SetBulk:
		if len(cmd.Payload) != cmd.Length {
			return nil, fmt.Errorf("%w: SET_BULK length %d with %d value bytes", protocol.ErrMalformedCommand, cmd.Length, len(cmd.Payload))
		}
		if err := sys.Store.SetRange(cmd.Channel, cmd.Payload, cmd.Or); err != nil {
			return nil, err
		}
		return []byte{protocol.AckByte}, nil

	default:
		return nil, protocol.Malformed(cmd.Header)
	}
}

// render hands the current rows to the console and returns them.
func (sys *System) render() []uint8 {
	sys.renderMu.Lock()
	defer sys.renderMu.Unlock()

	rows := sys.Store.Snapshot()
	if err := sys.console.Render(rows); err != nil {
		sys.log.Warn().Err(err).Msg("render failed")
	}
	return rows
}

// Serve accepts sessions from l and runs each in its own goroutine until
// ctx is cancelled or l fails. A failing session only ends itself.
// On return l is closed and all sessions have ended.
func (sys *System) Serve(ctx context.Context, l Listener) error {
	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	sys.log.Info().Str("addr", l.Addr()).Msg("fake CodeBug ready")
	_ = sys.console.WriteConsole(fmt.Sprintf("Fake CodeBug serial port is: %s", l.Addr()))

	var err error
	for {
		var rw io.ReadWriteCloser
		rw, err = l.Accept()
		if err != nil {
			break
		}
		sys.track(rw)
		sys.wg.Add(1)
		go func() {
			defer sys.wg.Done()
			defer sys.untrack(rw)
			_ = sys.NewSession(rw).Run()
		}()
	}

	l.Close()
	sys.closeSessions()
	sys.wg.Wait()

	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (sys *System) track(c io.Closer) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	sys.sessions[c] = struct{}{}
}

func (sys *System) untrack(c io.Closer) {
	sys.mu.Lock()
	delete(sys.sessions, c)
	sys.mu.Unlock()
	c.Close()
}

func (sys *System) closeSessions() {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	for c := range sys.sessions {
		c.Close()
	}
}
