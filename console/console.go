package console

import (
	"strings"
)

/*
The console is where the LED matrix ends up.

Three flavours:
	- Simple: clears a plain terminal and prints the matrix, used by default
	- Gui: gocui based, matrix and status lines in separate views
	- Null: headless, for tests and for running behind a pipe

Rows are drawn top row first. Within a row, bit 4 is the leftmost LED.
*/

// Width is the number of LEDs in a row
const Width = 5

// LED glyphs
const (
	On  = '#'
	Off = '-'
)

// Console is the display attached to the emulated device.
type Console interface {
	// Render redraws the whole matrix from a row snapshot
	Render(rows []uint8) error

	// WriteConsole displays a status message
	WriteConsole(msg string) error
}

// Draw returns the ASCII picture of rows, one line per row.
func Draw(rows []uint8) string {
	var sb strings.Builder
	sb.Grow(len(rows) * (Width + 1))
	for _, row := range rows {
		sb.WriteString(DrawRow(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DrawRow returns one row, bit 4 first.
func DrawRow(row uint8) string {
	var line [Width]byte
	for j := 0; j < Width; j++ {
		if (row>>uint(j))&1 != 0 {
			line[Width-1-j] = On
		} else {
			line[Width-1-j] = Off
		}
	}
	return string(line[:])
}

// Null discards everything
type Null struct{}

// Render does nothing
func (Null) Render(rows []uint8) error { return nil }

// WriteConsole does nothing
func (Null) WriteConsole(msg string) error { return nil }
