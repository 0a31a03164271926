package console

import (
	"io"
	"strings"
	"sync"
)

// ANSI: cursor home, erase screen
const clearScreen = "\x1b[H\x1b[2J"

// Simple console type definition: plain terminal output
type Simple struct {
	mu    sync.Mutex
	out   io.Writer
	clear bool // clear the terminal before every frame
}

// NewSimple returns a console writing to out.
func NewSimple(out io.Writer, clear bool) *Simple {
	return &Simple{out: out, clear: clear}
}

// Render clears the screen (if enabled) and draws the matrix
func (c *Simple) Render(rows []uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := Draw(rows)
	if c.clear {
		frame = clearScreen + frame
	}
	_, err := io.WriteString(c.out, frame)
	return err
}

// WriteConsole displays a string on the console, skipping empty lines
func (c *Simple) WriteConsole(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, line := range strings.Split(msg, "\n") {
		if line == "" {
			continue
		}
		if _, err := io.WriteString(c.out, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
