package tether

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"codebug/channels"
	"codebug/protocol"
	"codebug/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// device runs a fake CodeBug session on the far end of a pipe
func device(t *testing.T, rows int) (*Client, *channels.Store) {
	t.Helper()
	store, err := channels.New(rows)
	require.NoError(t, err)
	sys := system.InitializeSystem(store, system.Options{Nack: true})

	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		s := sys.NewSession(server)
		for ctx.Err() == nil {
			if err := s.Step(); err != nil {
				// keep serving after a rejected command, like Serve does
				// with a fresh session
				s = sys.NewSession(server)
				var terr *protocol.TransportError
				if errors.As(err, &terr) {
					return
				}
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		client.Close()
		<-done
	})
	return New(client, rows), store
}

func TestClient_GetSet(t *testing.T) {
	c, store := device(t, 5)

	require.NoError(t, c.Set(2, 31))
	v, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint8(31), v)

	require.NoError(t, c.Set(1, 0b10000))
	require.NoError(t, c.Or(1, 0b00001))
	assert.Equal(t, []uint8{0, 0b10001, 31, 0, 0}, store.Snapshot())
}

func TestClient_Bulk(t *testing.T) {
	c, _ := device(t, 6)

	require.NoError(t, c.SetBulk(1, []uint8{1, 2, 3}))
	require.NoError(t, c.OrBulk(1, []uint8{8, 8, 8}))
	got, err := c.GetBulk(0, 6)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 9, 10, 11, 0, 0}, got)

	got, err = c.GetBulk(3, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_Nack(t *testing.T) {
	c, store := device(t, 5)
	// a client that believes in a bigger device
	c.rows = 8

	err := c.Set(6, 1)
	assert.ErrorIs(t, err, ErrNack)

	err = c.SetBulk(3, []uint8{1, 1, 1})
	assert.ErrorIs(t, err, ErrNack)
	assert.Equal(t, make([]uint8, 5), store.Snapshot())

	// the device keeps answering
	require.NoError(t, c.Set(0, 4))
}

func TestClient_Display(t *testing.T) {
	c, store := device(t, 5)

	require.NoError(t, c.Fill())
	assert.Equal(t, []uint8{31, 31, 31, 31, 31}, store.Snapshot())
	require.NoError(t, c.Clear())
	assert.Equal(t, make([]uint8, 5), store.Snapshot())

	require.NoError(t, c.SetPixel(0, 0, true))
	require.NoError(t, c.SetPixel(4, 4, true))
	require.NoError(t, c.SetPixel(2, 1, true))
	assert.Equal(t, []uint8{0b10000, 0b00100, 0, 0, 0b00001}, store.Snapshot())

	on, err := c.GetPixel(2, 1)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, c.SetPixel(2, 1, false))
	on, err = c.GetPixel(2, 1)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, c.SetRow(3, 0b10101))
	row, err := c.GetRow(3)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b10101), row)
}

func TestClient_Columns(t *testing.T) {
	c, store := device(t, 5)

	require.NoError(t, c.SetCol(0, 0b10101))
	assert.Equal(t, []uint8{0b10000, 0, 0b10000, 0, 0b10000}, store.Snapshot())

	col, err := c.GetCol(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b10101), col)

	require.NoError(t, c.SetCol(0, 0))
	assert.Equal(t, make([]uint8, 5), store.Snapshot())
}

func TestClient_RangeChecks(t *testing.T) {
	c := New(&bytes.Buffer{}, 5)

	tests := []struct {
		name string
		err  error
	}{
		{"channel", c.Set(8, 0)},
		{"row", c.SetRow(5, 0)},
		{"column", c.SetPixel(5, 0, true)},
		{"negative pixel row", c.SetPixel(0, -1, true)},
		{"bulk length", c.SetBulk(0, make([]uint8, 256))},
		{"channel past last row", c.Set(5, 0)},
		{"empty bulk past last row", func() error { _, err := c.GetBulk(7, 0); return err }()},
		{"bulk overflow", func() error { _, err := c.GetBulk(3, 3); return err }()},
		{"set bulk overflow", c.SetBulk(4, []uint8{1, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, ErrRange)
		})
	}
}

// scripted transport for reply checks
type script struct {
	in  io.Reader
	out bytes.Buffer
}

func (s *script) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *script) Write(p []byte) (int, error) { return s.out.Write(p) }

func TestClient_EmptyBulkKeepsLineInSync(t *testing.T) {
	c, store := device(t, 5)

	_, err := c.GetBulk(7, 0)
	assert.ErrorIs(t, err, ErrRange)

	got, err := c.GetBulk(4, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.Set(0, 3))
	v, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), v)
	assert.Equal(t, uint8(3), store.Snapshot()[0])
}

func TestClient_BadAck(t *testing.T) {
	s := &script{in: bytes.NewReader([]byte{0x42})}
	c := New(s, 5)
	err := c.Set(0, 1)
	assert.ErrorIs(t, err, ErrBadReply)
	assert.Equal(t, []byte{0b001_000_0_0, 1}, s.out.Bytes())
}

func TestClient_ShortReply(t *testing.T) {
	s := &script{in: bytes.NewReader([]byte{1})}
	c := New(s, 5)
	_, err := c.GetBulk(0, 3)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
