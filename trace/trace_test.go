package trace

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	events := []Event{
		{Timestamp: ts, Session: "s1", Kind: KindOpen, Peer: "/dev/pts/3"},
		{Timestamp: ts, Session: "s1", Kind: KindCommand, Command: []byte{0x28, 0x1F}, Reply: []byte{0xC0}, Rows: []uint8{0, 0, 31, 0, 0}},
		{Timestamp: ts, Session: "s1", Kind: KindError, Command: []byte{0xE0}, Reply: []byte{0xE0}, Error: "protocol: malformed command"},
		{Timestamp: ts, Session: "s1", Kind: KindClose},
	}
	for _, e := range events {
		w.Record(e)
	}
	require.NoError(t, w.Err())

	got, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, len(events))
	for i := range events {
		assert.True(t, events[i].Timestamp.Equal(got[i].Timestamp), "event %d timestamp", i)
		got[i].Timestamp = events[i].Timestamp
		assert.Equal(t, events[i], got[i], "event %d", i)
	}
}

func TestWriter_DefaultTimestamp(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	before := time.Now()
	w.Record(Event{Session: "s", Kind: KindOpen})

	e, err := NewReader(&buf).Next()
	require.NoError(t, err)
	assert.False(t, e.Timestamp.Before(before.Truncate(time.Microsecond)))
}

func TestReader_FilterSession(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Record(Event{Session: "a", Kind: KindOpen})
	w.Record(Event{Session: "b", Kind: KindOpen})
	w.Record(Event{Session: "a", Kind: KindClose})

	r := NewReader(&buf)
	r.FilterSession("a")
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, KindOpen, got[0].Kind)
	assert.Equal(t, KindClose, got[1].Kind)
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil)).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCreateAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebug.trace")

	for i := 0; i < 2; i++ {
		w, err := Create(path)
		require.NoError(t, err)
		w.Record(Event{Session: "s", Kind: KindCommand})
		require.NoError(t, w.Close())
		// ignored after close
		w.Record(Event{Session: "s", Kind: KindCommand})
	}

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFormat(t *testing.T) {
	e := Event{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC),
		Session:   "0123456789abcdef",
		Kind:      KindCommand,
		Command:   []byte{0x28, 0x1F},
		Reply:     []byte{0xC0},
	}
	line := Format(e)
	assert.True(t, strings.HasPrefix(line, "12:00:01.000000 01234567 COMMAND"), line)
	assert.Contains(t, line, "cmd=28 1f")
	assert.Contains(t, line, "reply=c0")
	assert.NotContains(t, line, "err=")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ERROR", KindError.String())
	assert.Equal(t, "UNKNOWN", Kind(9).String())
}
