// Package config loads toolchain settings from koala.toml, a .env file and
// KOALA_* environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"koala/pkg/vm"
)

// FileName is the config file looked up next to the working directory.
const FileName = "koala.toml"

type Config struct {
	Log        Log        `toml:"log"`
	VM         VM         `toml:"vm"`
	Playground Playground `toml:"playground"`
}

type Log struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type VM struct {
	MaxFrames int  `toml:"max-frames"`
	StepLimit int  `toml:"step-limit"`
	Trace     bool `toml:"trace"`
}

type Playground struct {
	Addr     string `toml:"addr"`
	Database string `toml:"database"`
	// CacheSize bounds the number of compiled programs kept in memory.
	CacheSize int `toml:"cache-size"`
	// StepLimit caps every playground run. It applies even when the vm
	// section leaves runs unlimited.
	StepLimit int `toml:"step-limit"`
}

// DefaultPlaygroundStepLimit stops a tight loop in well under a second.
const DefaultPlaygroundStepLimit = 5_000_000

func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Pretty: true},
		VM: VM{
			MaxFrames: vm.DefaultMaxFrames,
			StepLimit: 0,
		},
		Playground: Playground{
			Addr:      ":8080",
			Database:  "koala.db",
			CacheSize: 256,
			StepLimit: DefaultPlaygroundStepLimit,
		},
	}
}

// Load builds a Config from defaults, then the TOML file at path, then a
// .env file in the same directory, then the process environment. Missing
// files are not an error. An empty path means FileName in the working
// directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("KOALA_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if err := envInt("KOALA_MAX_FRAMES", &c.VM.MaxFrames); err != nil {
		return err
	}
	if err := envInt("KOALA_STEP_LIMIT", &c.VM.StepLimit); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("KOALA_TRACE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: KOALA_TRACE: %w", err)
		}
		c.VM.Trace = b
	}
	if err := envInt("KOALA_PLAYGROUND_STEP_LIMIT", &c.Playground.StepLimit); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("KOALA_ADDR"); ok {
		c.Playground.Addr = v
	}
	if v, ok := os.LookupEnv("KOALA_DATABASE"); ok {
		c.Playground.Database = v
	}
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

// VMOptions turns the vm section into machine options. A zero step limit
// adds no option, so a limit set earlier by the caller stays in force.
func (c *Config) VMOptions() []vm.Option {
	opts := []vm.Option{
		vm.WithMaxFrames(c.VM.MaxFrames),
		vm.WithTrace(c.VM.Trace),
	}
	if c.VM.StepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(c.VM.StepLimit))
	}
	return opts
}

// PlaygroundVMOptions is VMOptions with the tighter of the two step limits.
func (c *Config) PlaygroundVMOptions() []vm.Option {
	opts := c.VMOptions()
	limit := c.Playground.StepLimit
	if c.VM.StepLimit > 0 && (limit <= 0 || c.VM.StepLimit < limit) {
		limit = c.VM.StepLimit
	}
	if limit > 0 {
		opts = append(opts, vm.WithStepLimit(limit))
	}
	return opts
}
