package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Transports
const (
	TransportPty = "pty"
	TransportTCP = "tcp"
)

// Renderers
const (
	RendererSimple = "simple"
	RendererGui    = "gui"
	RendererNone   = "none"
)

// Config holds the startup parameters of the emulator.
type Config struct {
	// Revision of the device: 1 has 5 rows, 2 has 6
	Revision int

	// Rows overrides the row count implied by Revision when > 0
	Rows int

	Transport string
	Listen    string // tcp address
	Link      string // symlink to the pty slave, optional

	Renderer string
	Clear    bool // simple renderer clears the screen before each frame

	// Nack replies 0xE0 to rejected commands before closing the session
	Nack bool

	Trace string // CBOR trace file, optional

	LogLevel string
	LogFile  string
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		Revision:  1,
		Transport: TransportPty,
		Listen:    "127.0.0.1:7005",
		Renderer:  RendererSimple,
		Clear:     true,
		Nack:      true,
		LogLevel:  "info",
	}
}

// RowCount returns the effective number of device rows.
func (c Config) RowCount() int {
	if c.Rows > 0 {
		return c.Rows
	}
	if c.Revision == 2 {
		return 6
	}
	return 5
}

// Validate checks the values which have a fixed set of choices.
func (c Config) Validate() error {
	var errs []error
	if c.Revision != 1 && c.Revision != 2 {
		errs = append(errs, fmt.Errorf("revision must be 1 or 2, got %d", c.Revision))
	}
	if c.Rows < 0 || c.Rows > 8 {
		errs = append(errs, fmt.Errorf("rows must be between 1 and 8, got %d", c.Rows))
	}
	switch c.Transport {
	case TransportPty:
	case TransportTCP:
		if c.Listen == "" {
			errs = append(errs, errors.New("tcp transport needs a listen address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	switch c.Renderer {
	case RendererSimple, RendererGui, RendererNone:
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q", c.Renderer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

type fileConfig struct {
	Revision  int     `toml:"revision"`
	Rows      int     `toml:"rows"`
	Transport string  `toml:"transport"`
	Listen    string  `toml:"listen"`
	Link      string  `toml:"link"`
	Renderer  string  `toml:"renderer"`
	Clear     bool    `toml:"clear"`
	Nack      bool    `toml:"nack"`
	Trace     string  `toml:"trace"`
	Log       logFile `toml:"log"`
}

type logFile struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Load reads a TOML file on top of Default. Keys absent from the
// file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("revision") {
		cfg.Revision = raw.Revision
	}
	if meta.IsDefined("rows") {
		cfg.Rows = raw.Rows
	}
	if meta.IsDefined("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(raw.Transport))
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("link") {
		cfg.Link = strings.TrimSpace(raw.Link)
	}
	if meta.IsDefined("renderer") {
		cfg.Renderer = strings.ToLower(strings.TrimSpace(raw.Renderer))
	}
	if meta.IsDefined("clear") {
		cfg.Clear = raw.Clear
	}
	if meta.IsDefined("nack") {
		cfg.Nack = raw.Nack
	}
	if meta.IsDefined("trace") {
		cfg.Trace = strings.TrimSpace(raw.Trace)
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "file") {
		cfg.LogFile = strings.TrimSpace(raw.Log.File)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
