// Package config loads and hot-reloads the runtime's boot configuration
// with viper, and mirrors every resolved key into an internal/domain/env
// store (the runtime's boot-time config store, which the original backs
// with Lua globals).
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/webitel/actorhost/internal/domain/env"
)

// requiredKeys are the boot-time keys the runtime cannot start without —
// the same three the original's env module demands be set before any
// service registers: the default worker thread count, the log service's
// output file, and the bootstrap (main) service's create args.
var requiredKeys = []string{"thread", "log", "main"}

// Config is the runtime's resolved boot configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from path (if non-empty) and the environment
// (prefixed ACTORHOST_), validating that every required key is present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("actorhost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("thread", 4)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	c := &Config{v: v}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	for _, key := range requiredKeys {
		if !c.v.IsSet(key) {
			return fmt.Errorf("config: missing required key %q", key)
		}
	}
	return nil
}

// Threads returns the worker pool size.
func (c *Config) Threads() int {
	return c.v.GetInt("thread")
}

// LogAddress returns the path of the file the log service appends to
// (empty means stderr-only logging).
func (c *Config) LogAddress() string {
	return c.v.GetString("log")
}

// Main returns the args passed to the bootstrap service's Create.
func (c *Config) Main() string {
	return c.v.GetString("main")
}

// ApplyTo mirrors every resolved key into the env store.
func (c *Config) ApplyTo(store *env.Store) {
	for _, k := range c.v.AllKeys() {
		store.Set(k, c.v.GetString(k))
	}
}

// WatchReload re-validates and calls onChange whenever the backing file
// changes, so config edits propagate into the env store the same way the
// Lua-backed original allowed env_set at runtime — but driven by the
// filesystem instead of scripting.
func (c *Config) WatchReload(onChange func(*Config)) {
	c.v.OnConfigChange(func(_ fsnotify.Event) {
		if err := c.validate(); err != nil {
			return
		}
		onChange(c)
	})
	c.v.WatchConfig()
}
