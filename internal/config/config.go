// Package config loads cdpsnap settings from a YAML file and the environment.
//
// Precedence, lowest first: defaults, config file, environment, flags. Flags
// are applied by the CLI on top of what Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/grantcarthew/cdpsnap/internal/browser"
)

// Environment variables.
const (
	EndpointEnv = "CDPSNAP_ENDPOINT"
	LaunchEnv   = "CDPSNAP_LAUNCH"
	ConfigEnv   = "CDPSNAP_CONFIG"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "cdpsnap.yaml"

// DefaultTimeout bounds a whole capture run.
const DefaultTimeout = 60 * time.Second

// Config holds the resolved settings for one run.
type Config struct {
	Endpoint    string
	Discovery   string
	LaunchToken string
	Select      string
	OutputDir   string
	Timeout     time.Duration
	FullPage    bool
	HTML        bool
	LaunchLocal bool
	Headless    bool
	Debug       bool

	// Source is the config file that was read, if any.
	Source string
}

// file mirrors the YAML layout. Pointers tell unset keys from zero values.
type file struct {
	Endpoint    *string `yaml:"endpoint"`
	Discovery   *string `yaml:"discovery"`
	LaunchToken *string `yaml:"launch_token"`
	Select      *string `yaml:"select"`
	OutputDir   *string `yaml:"output_dir"`
	Timeout     *string `yaml:"timeout"`
	FullPage    *bool   `yaml:"full_page"`
	HTML        *bool   `yaml:"html"`
	LaunchLocal *bool   `yaml:"launch_local"`
	Headless    *bool   `yaml:"headless"`
	Debug       *bool   `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Discovery: browser.DefaultDiscoveryURL,
		OutputDir: ".",
		Timeout:   DefaultTimeout,
		Headless:  true,
	}
}

// Load resolves defaults, the config file and the environment.
// An empty path falls back to $CDPSNAP_CONFIG, then ./cdpsnap.yaml if present.
// An explicitly named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		path = DefaultFile
		explicit = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.merge(data); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return err
	}

	setString(&c.Endpoint, f.Endpoint)
	setString(&c.Discovery, f.Discovery)
	setString(&c.LaunchToken, f.LaunchToken)
	setString(&c.Select, f.Select)
	setString(&c.OutputDir, f.OutputDir)
	setBool(&c.FullPage, f.FullPage)
	setBool(&c.HTML, f.HTML)
	setBool(&c.LaunchLocal, f.LaunchLocal)
	setBool(&c.Headless, f.Headless)
	setBool(&c.Debug, f.Debug)

	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", *f.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", *f.Timeout)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EndpointEnv); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(LaunchEnv); v != "" {
		c.LaunchToken = v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
