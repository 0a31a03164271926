// Package tether drives a CodeBug, real or fake, over its serial line.
//
//	c, err := tether.Dial("/tmp/codebug", 5)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//	c.SetPixel(2, 2, true)
//
// Pixel x counts columns from the left (x=0 is bit 4 of a row), y counts
// rows from the top.
package tether

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"codebug/protocol"

	"golang.org/x/term"
)

// Width of a row in pixels
const Width = 5

var (
	// ErrNack : the device rejected the command
	ErrNack = errors.New("tether: command rejected")
	// ErrBadReply : the device answered something unexpected
	ErrBadReply = errors.New("tether: unexpected reply")
	// ErrRange : argument outside what the protocol can carry
	ErrRange = errors.New("tether: argument out of range")
)

// Client talks to one device. Calls are serialized.
type Client struct {
	mu   sync.Mutex
	rw   io.ReadWriter
	rows int
}

// New returns a client over rw for a device with the given row count.
func New(rw io.ReadWriter, rows int) *Client {
	return &Client{rw: rw, rows: rows}
}

// Dial opens target: "tcp://host:port" or a serial device path, which is
// switched to raw mode.
func Dial(target string, rows int) (*Client, error) {
	if addr, ok := strings.CutPrefix(target, "tcp://"); ok {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("tether: %w", err)
		}
		return New(conn, rows), nil
	}

	f, err := os.OpenFile(target, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tether: %w", err)
	}
	if term.IsTerminal(int(f.Fd())) {
		if _, err := term.MakeRaw(int(f.Fd())); err != nil {
			f.Close()
			return nil, fmt.Errorf("tether: raw mode: %w", err)
		}
	}
	return New(f, rows), nil
}

// Rows returns the row count the client was built for
func (c *Client) Rows() int {
	return c.rows
}

// Close closes the underlying stream if it can be closed.
func (c *Client) Close() error {
	if cl, ok := c.rw.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// transaction sends cmd and reads n reply bytes. A lone NACK ends the
// reply early.
func (c *Client) transaction(cmd protocol.Command, n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.rw.Write(cmd.Bytes()); err != nil {
		return nil, fmt.Errorf("tether: write: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	reply := make([]byte, n)
	if _, err := io.ReadFull(c.rw, reply[:1]); err != nil {
		return nil, fmt.Errorf("tether: read: %w", err)
	}
	if reply[0] == protocol.NackByte {
		return nil, fmt.Errorf("%w: %v on channel %d", ErrNack, cmd.ID, cmd.Channel)
	}
	if _, err := io.ReadFull(c.rw, reply[1:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("tether: read: %w", err)
	}
	return reply, nil
}

func (c *Client) ack(cmd protocol.Command) error {
	reply, err := c.transaction(cmd, 1)
	if err != nil {
		return err
	}
	if reply[0] != protocol.AckByte {
		return fmt.Errorf("%w: %#02x instead of ACK", ErrBadReply, reply[0])
	}
	return nil
}

// checkChannel rejects channels the device does not have
func (c *Client) checkChannel(ch int) error {
	if ch < 0 || ch >= c.rows {
		return fmt.Errorf("%w: channel %d", ErrRange, ch)
	}
	return nil
}

func (c *Client) checkSpan(ch, n int) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}
	if n < 0 || ch+n > c.rows {
		return fmt.Errorf("%w: %d channels from %d", ErrRange, n, ch)
	}
	return nil
}

// Get returns the value of channel ch
func (c *Client) Get(ch int) (uint8, error) {
	if err := c.checkChannel(ch); err != nil {
		return 0, err
	}
	cmd := protocol.Command{Header: protocol.Header{ID: protocol.Get, Channel: ch}}
	reply, err := c.transaction(cmd, 1)
	if err != nil {
		return 0, err
	}
	return reply[0], nil
}

func (c *Client) set(ch int, v uint8, or bool) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}
	return c.ack(protocol.Command{
		Header:  protocol.Header{ID: protocol.Set, Channel: ch, Or: or},
		Payload: []byte{v},
	})
}

// Set replaces the value of channel ch
func (c *Client) Set(ch int, v uint8) error {
	return c.set(ch, v, false)
}

// Or merges v into channel ch
func (c *Client) Or(ch int, v uint8) error {
	return c.set(ch, v, true)
}

// GetBulk reads n channels starting at ch
func (c *Client) GetBulk(ch, n int) ([]uint8, error) {
	if err := c.checkSpan(ch, n); err != nil {
		return nil, err
	}
	cmd := protocol.Command{Header: protocol.Header{ID: protocol.GetBulk, Channel: ch}, Length: n}
	return c.transaction(cmd, n)
}

func (c *Client) setBulk(ch int, values []uint8, or bool) error {
	if err := c.checkSpan(ch, len(values)); err != nil {
		return err
	}
	return c.ack(protocol.Command{
		Header:  protocol.Header{ID: protocol.SetBulk, Channel: ch, Or: or},
		Length:  len(values),
		Payload: values,
	})
}

// SetBulk writes values to adjacent channels starting at ch
func (c *Client) SetBulk(ch int, values []uint8) error {
	return c.setBulk(ch, values, false)
}

// OrBulk merges values into adjacent channels starting at ch
func (c *Client) OrBulk(ch int, values []uint8) error {
	return c.setBulk(ch, values, true)
}
