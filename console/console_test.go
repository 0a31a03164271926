package console

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/jroimartin/gocui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawRow(t *testing.T) {
	tests := []struct {
		name string
		row  uint8
		want string
	}{
		{"off", 0, "-----"},
		{"on", 0x1F, "#####"},
		{"bit 4 is left", 0b10000, "#----"},
		{"bit 0 is right", 0b00001, "----#"},
		{"checker", 0b10101, "#-#-#"},
		{"upper bits ignored", 0xE0, "-----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DrawRow(tt.row); got != tt.want {
				t.Errorf("DrawRow(%05b) = %q, want %q", tt.row, got, tt.want)
			}
		})
	}
}

func TestDraw(t *testing.T) {
	rows := []uint8{0x1F, 0, 0b00100, 0, 0x1F}
	want := "#####\n-----\n--#--\n-----\n#####\n"
	assert.Equal(t, want, Draw(rows))
}

func TestSimple_Render(t *testing.T) {
	var buf bytes.Buffer
	c := NewSimple(&buf, false)
	require.NoError(t, c.Render([]uint8{1, 2}))
	assert.Equal(t, "----#\n---#-\n", buf.String())

	buf.Reset()
	c = NewSimple(&buf, true)
	require.NoError(t, c.Render([]uint8{0}))
	assert.Equal(t, clearScreen+"-----\n", buf.String())
}

func TestSimple_WriteConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewSimple(&buf, false)
	require.NoError(t, c.WriteConsole("first\n\nsecond"))
	assert.Equal(t, "first\nsecond\n", buf.String())
}

func TestNull(t *testing.T) {
	var c Console = Null{}
	assert.NoError(t, c.Render([]uint8{1}))
	assert.NoError(t, c.WriteConsole("x"))
}

func TestBacklog(t *testing.T) {
	q := newBacklog(3)
	assert.True(t, q.empty())

	for _, line := range []string{"a", "b", "c", "d"} {
		q.push(line)
	}
	assert.Equal(t, []string{"b", "c", "d"}, q.drain())
	assert.True(t, q.empty())
	assert.Empty(t, q.drain())
}

type fakePane struct {
	bytes.Buffer
	clears int
}

func (p *fakePane) Clear() {
	p.Reset()
	p.clears++
}

// fakeViews stands in for the gocui views; nil views do not exist yet
type fakeViews map[string]*fakePane

func (v fakeViews) view(name string) (pane, error) {
	p := v[name]
	if p == nil {
		return nil, gocui.ErrUnknownView
	}
	return p, nil
}

func newTestGui() (*Gui, *int) {
	updates := 0
	return newGui(func(func(*gocui.Gui) error) { updates++ }), &updates
}

func TestGui_SchedulesUpdates(t *testing.T) {
	c, updates := newTestGui()

	require.NoError(t, c.Render([]uint8{1}))
	require.NoError(t, c.WriteConsole("ready"))
	n, err := c.Write([]byte("log line\n"))
	require.NoError(t, err)
	assert.Equal(t, len("log line\n"), n)
	assert.Equal(t, 3, *updates)
}

func TestGui_DrawWaitsForViews(t *testing.T) {
	c, _ := newTestGui()
	require.NoError(t, c.Render([]uint8{0b10001, 0}))
	require.NoError(t, c.WriteConsole("first\nsecond"))

	// before the first layout pass nothing is lost
	views := fakeViews{}
	require.NoError(t, c.draw(views.view))
	assert.True(t, c.dirty)
	assert.False(t, c.pending.empty())

	views[MatrixView] = &fakePane{}
	views[StatusView] = &fakePane{}
	require.NoError(t, c.draw(views.view))
	assert.Equal(t, "#---#\n-----\n", views[MatrixView].String())
	assert.Equal(t, 1, views[MatrixView].clears)
	assert.Equal(t, "first\nsecond\n", views[StatusView].String())

	// nothing new, nothing redrawn
	require.NoError(t, c.draw(views.view))
	assert.Equal(t, 1, views[MatrixView].clears)
	assert.Equal(t, "first\nsecond\n", views[StatusView].String())
}

func TestGui_DrawLatestFrameOnly(t *testing.T) {
	c, _ := newTestGui()
	views := fakeViews{MatrixView: &fakePane{}, StatusView: &fakePane{}}

	require.NoError(t, c.Render([]uint8{1}))
	require.NoError(t, c.Render([]uint8{2}))
	require.NoError(t, c.draw(views.view))
	assert.Equal(t, "---#-\n", views[MatrixView].String())
}

func TestGui_BacklogBoundedWhileViewMissing(t *testing.T) {
	c, _ := newTestGui()
	views := fakeViews{MatrixView: &fakePane{}}

	for i := 0; i < backlogSize+10; i++ {
		require.NoError(t, c.WriteConsole(fmt.Sprintf("line %d", i)))
	}
	require.NoError(t, c.draw(views.view))

	views[StatusView] = &fakePane{}
	require.NoError(t, c.draw(views.view))
	lines := bytes.Split(bytes.TrimSpace(views[StatusView].Bytes()), []byte("\n"))
	require.Len(t, lines, backlogSize)
	assert.Equal(t, "line 10", string(lines[0]))
	assert.Equal(t, fmt.Sprintf("line %d", backlogSize+9), string(lines[len(lines)-1]))
}

func TestGui_DrawError(t *testing.T) {
	c, _ := newTestGui()
	require.NoError(t, c.Render([]uint8{1}))

	boom := errors.New("boom")
	err := c.draw(func(string) (pane, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}
