package main

import (
	"fmt"
	"io"

	"codebug/trace"

	"github.com/spf13/cobra"
)

var traceFlags struct {
	session string
}

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "print a protocol trace written by serve --trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := trace.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()
		r.FilterSession(traceFlags.session)
		return printTrace(r, cmd.OutOrStdout())
	},
}

func addTraceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&traceFlags.session, "session", "s", "", "only show sessions whose ID starts with this")
}

func printTrace(r *trace.Reader, out io.Writer) error {
	for {
		e, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, trace.Format(e)); err != nil {
			return err
		}
	}
}
