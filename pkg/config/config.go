// Package config loads the host-facing VM configuration from an optional
// TOML manifest. The VM itself only ever sees the plain Config struct.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the plain struct the VM is constructed from.
type Config struct {
	// BootClasspath lists directories and jmod/jar files for the
	// bootstrap class loader, as decoded from the manifest. The loaders
	// built by cmd/gojvm do not read it.
	BootClasspath []string `toml:"boot_classpath"`
	// UserClasspath lists directories for the user class loader, as
	// decoded from the manifest. The loaders built by cmd/gojvm do not
	// read it.
	UserClasspath []string `toml:"user_classpath"`
	// MaxFrameDepth bounds call depth before the engine raises a
	// StackOverflowError instead of growing the Go call stack further.
	MaxFrameDepth int `toml:"max_frame_depth"`
	// MainClass is the internal name (slash form) of the class whose
	// main(String[]) method is invoked at boot.
	MainClass string `toml:"main_class"`
}

// Default returns the configuration used when no manifest is supplied.
func Default() Config {
	return Config{MaxFrameDepth: 1024}
}

// Load reads a TOML manifest from path, filling in defaults for any field
// the manifest does not set.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if cfg.MaxFrameDepth <= 0 {
		cfg.MaxFrameDepth = 1024
	}
	return cfg, nil
}
