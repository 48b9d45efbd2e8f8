// Package config handles metaobject.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/metaobject/meta"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "metaobject.toml"

// Config represents a metaobject.toml file.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`
	Server  Server  `toml:"server"`
	Catalog Catalog `toml:"catalog"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the meta package.
type Runtime struct {
	SignatureCache int `toml:"signature-cache"`

	// BlockingSameThread is "warn" or "error".
	BlockingSameThread string `toml:"blocking-same-thread"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Server configures the remote invocation service.
type Server struct {
	Addr          string        `toml:"addr"`
	HandleTTL     time.Duration `toml:"handle-ttl"`
	SweepInterval time.Duration `toml:"sweep-interval"`

	// Capabilities a class must carry to be exposed. Empty exposes all.
	Capabilities []string `toml:"capabilities"`
}

// Catalog configures the class catalog.
type Catalog struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			SignatureCache:     meta.DefaultOptions().SignatureCacheSize,
			BlockingSameThread: "warn",
		},
		Server: Server{
			Addr:          "localhost:4010",
			HandleTTL:     30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Catalog: Catalog{Path: "classes.db"},
	}
}

// Load parses metaobject.toml from dir. Unset keys keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find metaobject.toml and loads
// it. Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Runtime.BlockingSameThread {
	case "warn", "error":
	default:
		return fmt.Errorf("runtime.blocking-same-thread must be \"warn\" or \"error\", got %q", c.Runtime.BlockingSameThread)
	}
	if c.Server.HandleTTL <= 0 {
		return fmt.Errorf("server.handle-ttl must be positive")
	}
	if c.Server.SweepInterval <= 0 {
		return fmt.Errorf("server.sweep-interval must be positive")
	}
	return nil
}

// Options returns the meta options the configuration selects.
func (c *Config) Options() meta.Options {
	return meta.Options{
		SignatureCacheSize:        c.Runtime.SignatureCache,
		BlockingSameThreadIsError: c.Runtime.BlockingSameThread == "error",
	}
}

// CatalogPath resolves the catalog path against the config directory.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path == "" || filepath.IsAbs(c.Catalog.Path) || c.Dir == "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.Dir, c.Catalog.Path)
}

// Apply installs the runtime options and configures logging.
func (c *Config) Apply() {
	meta.SetOptions(c.Options())

	var path *string
	if c.Log.File != "" {
		p := c.Log.File
		if !filepath.IsAbs(p) && c.Dir != "" {
			p = filepath.Join(c.Dir, p)
		}
		path = &p
	}
	commonlog.Configure(c.Log.Verbosity, path)
}
