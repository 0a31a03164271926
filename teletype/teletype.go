package teletype

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

/*
The teletype is the serial line of the fake device.

Pty: a pseudo-terminal pair. Clients open the slave side (its name is printed
at startup and can be symlinked to a stable path), the emulator talks through
the master side. The slave stays open in the emulator for its whole life, so
the master never reports EIO while no client is attached. A pty is one wire,
hence one session at a time.

TCP: the same protocol over a socket, one session per connection.
*/

// Pty type - pseudo-terminal serial line
type Pty struct {
	master *os.File
	slave  *os.File
	link   string

	// one token: held by the running session
	free   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// OpenPty allocates a pseudo-terminal in raw mode. With link set, a symlink
// pointing at the slave device is created there (replacing an older symlink).
func OpenPty(link string) (*Pty, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("teletype: open pty: %w", err)
	}

	// no echo, no line editing, no CR/NL translation: the protocol is binary
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("teletype: raw mode: %w", err)
	}

	if master, err = pollable(master); err != nil {
		slave.Close()
		return nil, fmt.Errorf("teletype: master: %w", err)
	}

	t := &Pty{
		master: master,
		slave:  slave,
		free:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	t.free <- struct{}{}

	if link != "" {
		if err := replaceSymlink(slave.Name(), link); err != nil {
			t.Close()
			return nil, err
		}
		t.link = link
	}
	return t, nil
}

func replaceSymlink(target, link string) error {
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("teletype: %s exists and is not a symlink", link)
		}
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("teletype: %w", err)
		}
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("teletype: %w", err)
	}
	return nil
}

// pollable reopens f in non-blocking mode. pty.Open returns a blocking
// master; a Read on it ignores Close and deadlines.
func pollable(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		f.Close()
		return nil, err
	}
	name := f.Name()
	f.Close()
	return os.NewFile(uintptr(fd), name), nil
}

// Name returns the slave device path clients should open.
func (t *Pty) Name() string {
	return t.slave.Name()
}

// Addr returns the path clients should open: the link if any.
func (t *Pty) Addr() string {
	if t.link != "" {
		return t.link
	}
	return t.Name()
}

// Accept waits until the previous session is closed and returns a new one.
func (t *Pty) Accept() (io.ReadWriteCloser, error) {
	select {
	case <-t.closed:
		return nil, net.ErrClosed
	default:
	}

	select {
	case <-t.free:
		// lift the deadline left by the previous session
		err := t.master.SetReadDeadline(time.Time{})
		if err != nil && !errors.Is(err, os.ErrNoDeadline) {
			t.free <- struct{}{}
			return nil, net.ErrClosed
		}
		return &ptySession{t: t}, nil
	case <-t.closed:
		return nil, net.ErrClosed
	}
}

// Close releases both pty ends and removes the link.
func (t *Pty) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closed)
		if t.link != "" {
			os.Remove(t.link)
		}
		err = errors.Join(t.master.Close(), t.slave.Close())
	})
	return err
}

// ptySession is one client conversation over the shared master.
// Closing it hands the line to the next session.
type ptySession struct {
	t    *Pty
	once sync.Once
}

func (s *ptySession) Read(p []byte) (int, error) {
	return s.t.master.Read(p)
}

func (s *ptySession) Write(p []byte) (int, error) {
	return s.t.master.Write(p)
}

// Close wakes up a Read still waiting on the master, then frees the line.
func (s *ptySession) Close() error {
	s.once.Do(func() {
		_ = s.t.master.SetReadDeadline(time.Now())
		s.t.free <- struct{}{}
	})
	return nil
}

// Peer names the other end for logs
func (s *ptySession) Peer() string {
	return s.t.Name()
}

// TCP type - the protocol over a socket
type TCP struct {
	l net.Listener
}

// ListenTCP listens on addr.
func ListenTCP(addr string) (*TCP, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("teletype: %w", err)
	}
	return &TCP{l: l}, nil
}

// Accept returns the next connection.
func (t *TCP) Accept() (io.ReadWriteCloser, error) {
	return t.l.Accept()
}

// Addr returns the listening address.
func (t *TCP) Addr() string {
	return t.l.Addr().String()
}

// Close stops listening.
func (t *TCP) Close() error {
	return t.l.Close()
}
