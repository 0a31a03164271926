package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jroimartin/gocui"
)

// gocui view names, the layout in main creates them
const (
	MatrixView = "matrix"
	StatusView = "status"
)

// status lines kept while the view does not exist yet
const backlogSize = 256

// pane is the part of a gocui view the console draws on
type pane interface {
	io.Writer
	Clear()
}

// Gui type definition
// gocui only allows touching views from inside Update, and Update gives no
// ordering guarantee. So Render and WriteConsole only record what should be
// shown and every Update callback flushes the latest state.
type Gui struct {
	update func(func(*gocui.Gui) error) // main gocui GUI object's Update

	mu      sync.Mutex
	rows    []uint8  // latest snapshot
	dirty   bool     // rows changed since the last draw
	pending *backlog // status lines not yet printed
}

// NewGui returns a console drawing into the views of g.
func NewGui(g *gocui.Gui) *Gui {
	return newGui(g.Update)
}

func newGui(update func(func(*gocui.Gui) error)) *Gui {
	return &Gui{update: update, pending: newBacklog(backlogSize)}
}

// Render schedules a redraw of the matrix view
func (c *Gui) Render(rows []uint8) error {
	c.mu.Lock()
	c.rows = append(c.rows[:0], rows...)
	c.dirty = true
	c.mu.Unlock()

	c.update(c.flush)
	return nil
}

// WriteConsole displays a string in the status view
func (c *Gui) WriteConsole(msg string) error {
	c.mu.Lock()
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.pending.push(line)
		}
	}
	c.mu.Unlock()

	c.update(c.flush)
	return nil
}

// Write makes the status view usable as a log sink
func (c *Gui) Write(p []byte) (int, error) {
	if err := c.WriteConsole(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// flush runs on the gocui main loop.
func (c *Gui) flush(g *gocui.Gui) error {
	return c.draw(func(name string) (pane, error) {
		v, err := g.View(name)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// draw writes the queued state to the views returned by view. Before the
// first layout pass the views do not exist yet; the state stays queued for
// the next flush.
func (c *Gui) draw(view func(name string) (pane, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dirty {
		v, err := view(MatrixView)
		if err == gocui.ErrUnknownView {
			return nil
		}
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, Draw(c.rows))
		c.dirty = false
	}

	if !c.pending.empty() {
		v, err := view(StatusView)
		if err == gocui.ErrUnknownView {
			return nil
		}
		if err != nil {
			return err
		}
		for _, line := range c.pending.drain() {
			fmt.Fprintln(v, line)
		}
	}
	return nil
}
