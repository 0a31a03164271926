package channels

import (
	"errors"
	"fmt"
	"sync"
)

// ValueMask : every channel holds 5 bits, one per LED in a row
const ValueMask = 0x1F

// MaxRows is the largest row count a store can be built with.
// The header byte addresses 3 bits worth of channels.
const MaxRows = 8

var (
	// ErrIndexOutOfRange is returned for any channel index outside the store.
	ErrIndexOutOfRange = errors.New("channels: index out of range")
	// ErrRowCount : a store needs 1 to MaxRows rows
	ErrRowCount = errors.New("channels: row count out of range")
)

// Store keeps the LED channel values of one emulated device.
// All sessions of a server share the same store, so every
// operation takes the mutex.
type Store struct {
	mu   sync.Mutex
	rows []uint8
}

// New returns a zeroed store with the given row count.
func New(rows int) (*Store, error) {
	if rows < 1 || rows > MaxRows {
		return nil, fmt.Errorf("%w: %d", ErrRowCount, rows)
	}
	return &Store{rows: make([]uint8, rows)}, nil
}

// Len returns the number of rows
func (s *Store) Len() int {
	return len(s.rows)
}

// Get returns the masked value of channel index.
func (s *Store) Get(index int) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(index, 1); err != nil {
		return 0, err
	}
	return s.rows[index] & ValueMask, nil
}

// Set stores value in channel index. With or set, the value is merged
// with the current one instead of replacing it.
func (s *Store) Set(index int, value uint8, or bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(index, 1); err != nil {
		return err
	}
	s.set(index, value, or)
	return nil
}

// GetRange reads n adjacent channels starting at start.
func (s *Store) GetRange(start, n int) ([]uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(start, n); err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	for i := range out {
		out[i] = s.rows[start+i] & ValueMask
	}
	return out, nil
}

// SetRange writes values to adjacent channels starting at start.
// The whole range is checked first: either every row is written or none.
func (s *Store) SetRange(start int, values []uint8, or bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(start, len(values)); err != nil {
		return err
	}
	for i, v := range values {
		s.set(start+i, v, or)
	}
	return nil
}

// Snapshot returns a copy of all rows, top row first.
func (s *Store) Snapshot() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uint8, len(s.rows))
	copy(out, s.rows)
	return out
}

// Reset turns every LED off.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		s.rows[i] = 0
	}
}

func (s *Store) set(index int, value uint8, or bool) {
	if or {
		value |= s.rows[index]
	}
	s.rows[index] = value & ValueMask
}

// check validates the range [start, start+n). start must name an existing
// row even when n is zero.
func (s *Store) check(start, n int) error {
	if start < 0 || start >= len(s.rows) || n < 0 || start+n > len(s.rows) {
		if n <= 1 {
			return fmt.Errorf("%w: channel %d, %d rows", ErrIndexOutOfRange, start, len(s.rows))
		}
		return fmt.Errorf("%w: channels %d..%d, %d rows", ErrIndexOutOfRange, start, start+n-1, len(s.rows))
	}
	return nil
}
