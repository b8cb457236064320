// Package config loads cctr's run configuration from layered sources:
// built-in defaults, an optional .cctr.toml, CCTR_*-prefixed environment
// variables, and finally CLI flags (highest precedence).
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config holds every run-time option, independent of how it was sourced.
type Config struct {
	Root       string `mapstructure:"root"`
	Pattern    string `mapstructure:"pattern"`
	Update     bool   `mapstructure:"update"`
	ListOnly   bool   `mapstructure:"list"`
	Verbose    int    `mapstructure:"verbose"`
	Sequential bool   `mapstructure:"sequential"`
	NoColor    bool   `mapstructure:"no_color"`
	Shell      string `mapstructure:"shell"`
}

// fileConfig mirrors the subset of Config a .cctr.toml may set.
type fileConfig struct {
	Pattern    string `toml:"pattern"`
	Sequential bool   `toml:"sequential"`
	NoColor    bool   `toml:"no_color"`
	Shell      string `toml:"shell"`
}

func defaults() Config {
	return Config{Root: ".", Shell: ""}
}

// Load builds a Config by layering defaults, an optional tomlPath, CCTR_*
// environment variables, and caller-supplied flagOverrides (already parsed
// from the command line), in ascending precedence.
func Load(tomlPath string, flagOverrides Config, flagsSet map[string]bool) (Config, error) {
	cfg := defaults()

	if tomlPath != "" {
		if data, err := os.ReadFile(tomlPath); err == nil {
			var fc fileConfig
			if err := toml.Unmarshal(data, &fc); err != nil {
				return cfg, err
			}
			applyFileConfig(&cfg, fc)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("CCTR")
	v.AutomaticEnv()
	applyEnvConfig(&cfg, v)

	applyFlagOverrides(&cfg, flagOverrides, flagsSet)
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Pattern != "" {
		cfg.Pattern = fc.Pattern
	}
	if fc.Shell != "" {
		cfg.Shell = fc.Shell
	}
	cfg.Sequential = cfg.Sequential || fc.Sequential
	cfg.NoColor = cfg.NoColor || fc.NoColor
}

func applyEnvConfig(cfg *Config, v *viper.Viper) {
	if v.IsSet("pattern") {
		cfg.Pattern = v.GetString("pattern")
	}
	if v.IsSet("shell") {
		cfg.Shell = v.GetString("shell")
	}
	if v.IsSet("sequential") {
		cfg.Sequential = v.GetBool("sequential")
	}
	if v.IsSet("no_color") {
		cfg.NoColor = v.GetBool("no_color")
	}
}

func applyFlagOverrides(cfg *Config, flags Config, set map[string]bool) {
	if set["root"] {
		cfg.Root = flags.Root
	}
	if set["pattern"] {
		cfg.Pattern = flags.Pattern
	}
	if set["update"] {
		cfg.Update = flags.Update
	}
	if set["list"] {
		cfg.ListOnly = flags.ListOnly
	}
	if set["verbose"] {
		cfg.Verbose = flags.Verbose
	}
	if set["sequential"] {
		cfg.Sequential = flags.Sequential
	}
	if set["no_color"] {
		cfg.NoColor = flags.NoColor
	}
	if set["shell"] {
		cfg.Shell = flags.Shell
	}
}
