package cli

import (
	"fmt"

	"github.com/grantcarthew/cdpsnap/internal/browser"
	"github.com/grantcarthew/cdpsnap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addSourceFlags registers the flags that decide which browser and target
// a command talks to.
func addSourceFlags(fs *pflag.FlagSet) {
	fs.String("endpoint", "", "Browser protocol endpoint (ws://...), skips HTTP discovery")
	fs.String("discovery", browser.DefaultDiscoveryURL, "Base URL of the browser's HTTP discovery endpoints")
	fs.String("select", "", `Expression choosing a target, e.g. 'url contains "example"'`)
	fs.String("config", "", "Config file (default ./"+config.DefaultFile+")")
}

// loadConfig resolves the config file and environment, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	stringFlags := map[string]*string{
		"endpoint":  &cfg.Endpoint,
		"discovery": &cfg.Discovery,
		"select":    &cfg.Select,
		"output":    &cfg.OutputDir,
	}
	for name, dst := range stringFlags {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}

	boolFlags := map[string]*bool{
		"full-page":    &cfg.FullPage,
		"html":         &cfg.HTML,
		"launch-local": &cfg.LaunchLocal,
		"headless":     &cfg.Headless,
	}
	for name, dst := range boolFlags {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}

	if fs.Changed("timeout") {
		cfg.Timeout, _ = fs.GetDuration("timeout")
		if cfg.Timeout < 0 {
			return config.Config{}, fmt.Errorf("invalid timeout %s: must not be negative", cfg.Timeout)
		}
	}

	if Debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		Debug = true
	}
	if cfg.Source != "" {
		debugf("CONFIG", "loaded %s", cfg.Source)
	}
	return cfg, nil
}
