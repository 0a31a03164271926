package system

import (
	"errors"
	"io"
	"net"

	"codebug/protocol"
	"codebug/trace"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State of a session
type State int

// A session waits for the next header until something goes wrong.
// Closed is terminal.
const (
	AwaitingHeader State = iota
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting-header"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrSessionClosed is returned by Step once the session has ended
var ErrSessionClosed = errors.New("system: session closed")

// Session is one client conversation with the device.
type Session struct {
	ID   string
	Peer string

	sys   *System
	rw    io.ReadWriter
	state State
	log   zerolog.Logger
}

// NewSession starts a session over rw.
func (sys *System) NewSession(rw io.ReadWriter) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		Peer: peerName(rw),
		sys:  sys,
		rw:   rw,
	}
	s.log = sys.log.With().Str("session", s.ID).Logger()
	return s
}

func peerName(rw io.ReadWriter) string {
	switch p := rw.(type) {
	case interface{ Peer() string }:
		return p.Peer()
	case net.Conn:
		return p.RemoteAddr().String()
	default:
		return ""
	}
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Run handles commands until the session closes. A client hanging up
// between commands is a normal end and returns nil; any other error that
// closed the session is returned.
func (s *Session) Run() error {
	s.log.Info().Str("peer", s.Peer).Msg("session opened")
	s.sys.trace.Record(trace.Event{Session: s.ID, Kind: trace.KindOpen, Peer: s.Peer})

	var err error
	for err == nil {
		err = s.Step()
	}

	if isHangup(err) {
		err = nil
	}
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Msg("session closed")
	s.sys.trace.Record(trace.Event{Session: s.ID, Kind: trace.KindClose})
	return err
}

func isHangup(err error) bool {
	var terr *protocol.TransportError
	return errors.As(err, &terr) && terr.Op == "read" && terr.Err == io.EOF
}

// Step reads, executes and answers one command, then redraws the display.
// Any error moves the session to Closed.
func (s *Session) Step() error {
	if s.state == Closed {
		return ErrSessionClosed
	}

	cmd, err := protocol.ReadCommand(s.rw)
	if err != nil {
		return s.fail(cmd, err)
	}

	reply, err := s.sys.Execute(cmd)
	if err != nil {
		return s.fail(cmd, err)
	}

	if len(reply) > 0 {
		if _, err := s.rw.Write(reply); err != nil {
			return s.fail(cmd, &protocol.TransportError{Op: "write", Err: err})
		}
	}

	rows := s.sys.render()
	s.log.Debug().
		Stringer("cmd", cmd.ID).
		Int("channel", cmd.Channel).
		Bool("or", cmd.Or).
		Hex("reply", reply).
		Msg("command")
	s.sys.trace.Record(trace.Event{
		Session: s.ID,
		Kind:    trace.KindCommand,
		Command: cmd.Bytes(),
		Reply:   reply,
		Rows:    rows,
	})
	return nil
}

// fail closes the session. Rejected commands are answered with a NACK when
// enabled; a broken transport gets nothing.
func (s *Session) fail(cmd protocol.Command, err error) error {
	s.state = Closed
	if isHangup(err) {
		return err
	}

	var terr *protocol.TransportError
	broken := errors.As(err, &terr)

	var reply []byte
	if s.sys.nack && !broken {
		reply = []byte{protocol.NackByte}
		if _, werr := s.rw.Write(reply); werr != nil {
			s.log.Debug().Err(werr).Msg("nack not delivered")
			reply = nil
		}
	}

	var raw []byte
	if !broken {
		raw = cmd.Bytes()
	}
	s.sys.trace.Record(trace.Event{
		Session: s.ID,
		Kind:    trace.KindError,
		Command: raw,
		Reply:   reply,
		Error:   err.Error(),
	})
	return err
}
