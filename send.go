package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"codebug/tether"

	"github.com/spf13/cobra"
)

var sendFlags struct {
	port string
	rows int
}

var errUsage = errors.New("usage")

var sendCmd = &cobra.Command{
	Use:   "send OP [ARGS...]",
	Short: "drive a CodeBug over its serial line",
	Long: `send performs one operation on a CodeBug, real or emulated.
Values accept 0b, 0x and 0 prefixes.

	get CH              print channel CH
	set CH V            replace channel CH
	or CH V             merge V into channel CH
	getbulk CH N        print N channels from CH
	setbulk CH V...     write adjacent channels from CH
	row Y [V]           print or set row Y
	col X [V]           print or set column X
	pixel X Y [on|off]  print or switch one LED
	clear | fill        switch every LED off or on

	Example:
	codebug send --port /tmp/codebug pixel 1 2 on
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tether.Dial(sendFlags.port, sendFlags.rows)
		if err != nil {
			return err
		}
		defer c.Close()
		return send(c, args, cmd.OutOrStdout())
	},
}

func addSendFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&sendFlags.port, "port", "p", "", "serial device path or tcp://host:port")
	f.IntVar(&sendFlags.rows, "rows", 5, "row count of the device")
	_ = cmd.MarkFlagRequired("port")
}

// send runs one operation, printing whatever it reads to out
func send(c *tether.Client, args []string, out io.Writer) error {
	op, args := args[0], args[1:]
	n, err := parseArgs(op, args)
	if err != nil {
		return err
	}

	switch op {
	case "get":
		v, err := c.Get(n[0])
		if err != nil {
			return err
		}
		return printValue(out, v)
	case "set":
		return c.Set(n[0], uint8(n[1]))
	case "or":
		return c.Or(n[0], uint8(n[1]))
	case "getbulk":
		values, err := c.GetBulk(n[0], n[1])
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := printValue(out, v); err != nil {
				return err
			}
		}
		return nil
	case "setbulk":
		values := make([]uint8, len(n)-1)
		for i, v := range n[1:] {
			values[i] = uint8(v)
		}
		return c.SetBulk(n[0], values)
	case "row":
		if len(n) == 2 {
			return c.SetRow(n[0], uint8(n[1]))
		}
		v, err := c.GetRow(n[0])
		if err != nil {
			return err
		}
		return printValue(out, v)
	case "col":
		if len(n) == 2 {
			return c.SetCol(n[0], uint8(n[1]))
		}
		v, err := c.GetCol(n[0])
		if err != nil {
			return err
		}
		return printValue(out, v)
	case "pixel":
		if len(args) == 3 {
			return c.SetPixel(n[0], n[1], args[2] == "on")
		}
		on, err := c.GetPixel(n[0], n[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, onOff(on))
		return err
	case "clear":
		return c.Clear()
	case "fill":
		return c.Fill()
	}
	return fmt.Errorf("%w: unknown operation %q", errUsage, op)
}

// parseArgs checks the argument count of op and converts the numeric
// arguments
func parseArgs(op string, args []string) ([]int, error) {
	var lo, hi int
	switch op {
	case "get":
		lo, hi = 1, 1
	case "set", "or", "getbulk":
		lo, hi = 2, 2
	case "setbulk":
		lo, hi = 1, 256
	case "row", "col":
		lo, hi = 1, 2
	case "pixel":
		lo, hi = 2, 3
	case "clear", "fill":
		lo, hi = 0, 0
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", errUsage, op)
	}
	if len(args) < lo || len(args) > hi {
		return nil, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", errUsage, op, lo, hi, len(args))
	}

	numeric := args
	if op == "pixel" && len(args) == 3 {
		if args[2] != "on" && args[2] != "off" {
			return nil, fmt.Errorf("%w: pixel state must be on or off, got %q", errUsage, args[2])
		}
		numeric = args[:2]
	}

	n := make([]int, len(numeric))
	for i, a := range numeric {
		v, err := strconv.ParseInt(a, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", errUsage, a)
		}
		n[i] = int(v)
	}
	return n, nil
}

func printValue(out io.Writer, v uint8) error {
	_, err := fmt.Fprintf(out, "%d\t%05b\n", v, v)
	return err
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
