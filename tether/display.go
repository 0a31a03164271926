package tether

import "fmt"

// Display helpers. Rows are channels 0..rows-1.

// Clear turns every pixel off
func (c *Client) Clear() error {
	return c.SetBulk(0, make([]uint8, c.rows))
}

// Fill turns every pixel on
func (c *Client) Fill() error {
	values := make([]uint8, c.rows)
	for i := range values {
		values[i] = 0x1F
	}
	return c.SetBulk(0, values)
}

func (c *Client) checkRow(y int) error {
	if y < 0 || y >= c.rows {
		return fmt.Errorf("%w: row %d", ErrRange, y)
	}
	return nil
}

func checkCol(x int) error {
	if x < 0 || x >= Width {
		return fmt.Errorf("%w: column %d", ErrRange, x)
	}
	return nil
}

// SetRow sets a whole row, bit 4 is the leftmost pixel
func (c *Client) SetRow(y int, v uint8) error {
	if err := c.checkRow(y); err != nil {
		return err
	}
	return c.Set(y, v)
}

// GetRow returns a whole row
func (c *Client) GetRow(y int) (uint8, error) {
	if err := c.checkRow(y); err != nil {
		return 0, err
	}
	return c.Get(y)
}

// SetCol sets column x from v, the top pixel is the most significant bit
// of a rows-wide value.
func (c *Client) SetCol(x int, v uint8) error {
	if err := checkCol(x); err != nil {
		return err
	}
	rows, err := c.GetBulk(0, c.rows)
	if err != nil {
		return err
	}
	bit := uint8(1) << uint(Width-1-x)
	for y := range rows {
		rows[y] &^= bit
		if (v>>uint(c.rows-1-y))&1 != 0 {
			rows[y] |= bit
		}
	}
	return c.SetBulk(0, rows)
}

// GetCol returns column x, top pixel first
func (c *Client) GetCol(x int) (uint8, error) {
	if err := checkCol(x); err != nil {
		return 0, err
	}
	rows, err := c.GetBulk(0, c.rows)
	if err != nil {
		return 0, err
	}
	var col uint8
	for _, row := range rows {
		col <<= 1
		col |= (row >> uint(Width-1-x)) & 1
	}
	return col, nil
}

// SetPixel switches one pixel. Switching on is a single OR write,
// switching off needs a read first.
func (c *Client) SetPixel(x, y int, on bool) error {
	if err := checkCol(x); err != nil {
		return err
	}
	if err := c.checkRow(y); err != nil {
		return err
	}
	bit := uint8(1) << uint(Width-1-x)
	if on {
		return c.Or(y, bit)
	}
	row, err := c.Get(y)
	if err != nil {
		return err
	}
	return c.Set(y, row&^bit)
}

// GetPixel returns the state of one pixel
func (c *Client) GetPixel(x, y int) (bool, error) {
	if err := checkCol(x); err != nil {
		return false, err
	}
	row, err := c.GetRow(y)
	if err != nil {
		return false, err
	}
	return (row>>uint(Width-1-x))&1 != 0, nil
}
