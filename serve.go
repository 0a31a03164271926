package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"codebug/channels"
	"codebug/config"
	"codebug/console"
	"codebug/logger"
	"codebug/system"
	"codebug/teletype"
	"codebug/trace"

	"github.com/spf13/cobra"
)

var serveFlags struct {
	config    string
	revision  int
	rows      int
	transport string
	listen    string
	link      string
	renderer  string
	noClear   bool
	noNack    bool
	trace     string
	logLevel  string
	logFile   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the fake CodeBug",
	Long: `serve opens a pseudo-terminal (or a TCP port) and answers the CodeBug
channel protocol on it. The LED matrix is redrawn after every command.

	Example:
	codebug serve --link /tmp/codebug
	Fake CodeBug serial port is: /tmp/codebug
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := serveConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&serveFlags.config, "config", "c", "", "TOML config file")
	f.IntVar(&serveFlags.revision, "revision", 1, "device revision: 1 (5 rows) or 2 (6 rows)")
	f.IntVar(&serveFlags.rows, "rows", 0, "row count, overrides --revision")
	f.StringVar(&serveFlags.transport, "transport", config.TransportPty, "pty or tcp")
	f.StringVar(&serveFlags.listen, "listen", "127.0.0.1:7005", "listen address for the tcp transport")
	f.StringVar(&serveFlags.link, "link", "", "symlink pointing at the pty slave")
	f.StringVar(&serveFlags.renderer, "renderer", config.RendererSimple, "simple, gui or none")
	f.BoolVar(&serveFlags.noClear, "no-clear", false, "do not clear the screen between frames")
	f.BoolVar(&serveFlags.noNack, "no-nack", false, "close rejected sessions without a NACK byte")
	f.StringVar(&serveFlags.trace, "trace", "", "append a CBOR protocol trace to this file")
	f.StringVar(&serveFlags.logLevel, "log-level", "info", "trace, debug, info, warn, error or off")
	f.StringVar(&serveFlags.logFile, "log-file", "", "log to this file instead of stdout")
}

// serveConfig loads the config file, if any, and applies the flags given
// on the command line on top of it.
func serveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if serveFlags.config != "" {
		var err error
		if cfg, err = config.Load(serveFlags.config); err != nil {
			return config.Config{}, err
		}
	}

	f := cmd.Flags()
	if f.Changed("revision") {
		cfg.Revision = serveFlags.revision
	}
	if f.Changed("rows") {
		cfg.Rows = serveFlags.rows
	}
	if f.Changed("transport") {
		cfg.Transport = serveFlags.transport
	}
	if f.Changed("listen") {
		cfg.Listen = serveFlags.listen
	}
	if f.Changed("link") {
		cfg.Link = serveFlags.link
	}
	if f.Changed("renderer") {
		cfg.Renderer = serveFlags.renderer
	}
	if f.Changed("no-clear") {
		cfg.Clear = !serveFlags.noClear
	}
	if f.Changed("no-nack") {
		cfg.Nack = !serveFlags.noNack
	}
	if f.Changed("trace") {
		cfg.Trace = serveFlags.trace
	}
	if f.Changed("log-level") {
		cfg.LogLevel = serveFlags.logLevel
	}
	if f.Changed("log-file") {
		cfg.LogFile = serveFlags.logFile
	}
	return cfg, cfg.Validate()
}

func openListener(cfg config.Config) (system.Listener, error) {
	if cfg.Transport == config.TransportTCP {
		return teletype.ListenTCP(cfg.Listen)
	}
	return teletype.OpenPty(cfg.Link)
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Renderer == config.RendererGui {
		return serveGui(ctx, cfg)
	}

	var c console.Console = console.Null{}
	if cfg.Renderer == config.RendererSimple {
		c = console.NewSimple(os.Stdout, cfg.Clear)
	}
	return run(ctx, cfg, c, os.Stdout)
}

// run builds the device and serves until ctx is done.
// logOut receives the log when no log file is configured.
func run(ctx context.Context, cfg config.Config, c console.Console, logOut io.Writer) error {
	log, closer, err := logger.New(cfg.LogFile, cfg.LogLevel, logOut)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	opts := system.Options{Console: c, Log: &log, Nack: cfg.Nack}
	if cfg.Trace != "" {
		tw, err := trace.Create(cfg.Trace)
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer tw.Close()
		opts.Trace = tw
	}

	store, err := channels.New(cfg.RowCount())
	if err != nil {
		return err
	}

	l, err := openListener(cfg)
	if err != nil {
		return err
	}

	sys := system.InitializeSystem(store, opts)
	log.Info().
		Int("rows", store.Len()).
		Str("transport", cfg.Transport).
		Bool("nack", cfg.Nack).
		Msg("starting fake CodeBug")

	// initial frame, all LEDs off
	_ = c.Render(store.Snapshot())
	return sys.Serve(ctx, l)
}
