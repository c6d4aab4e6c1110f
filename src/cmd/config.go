package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved run configuration.
// Precedence (highest to lowest):
// 1. Command-line flags
// 2. AIRFILTER_* environment variables
// 3. airfilter.yaml (--config, the working directory, then the user config dir)
// 4. Built-in defaults
type Config struct {
	Namespace     string `mapstructure:"namespace"`
	Verbose       bool   `mapstructure:"verbose"`
	Shell         string `mapstructure:"shell"`
	Workdir       string `mapstructure:"workdir"`
	LogFile       string `mapstructure:"log_file"`
	LogLevel      string `mapstructure:"log_level"`
	Interactive   bool   `mapstructure:"interactive"`
	PromptTimeout int    `mapstructure:"prompt_timeout"`
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"verbose":        "verbose",
	"shell":          "shell",
	"workdir":        "workdir",
	"log_file":       "log-file",
	"log_level":      "log-level",
	"interactive":    "interactive",
	"prompt_timeout": "prompt-timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "")
	v.SetDefault("verbose", true)
	v.SetDefault("shell", "bash")
	v.SetDefault("workdir", ".")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("interactive", false)
	v.SetDefault("prompt_timeout", 10)
}

// userConfigDir returns $XDG_CONFIG_HOME/airfilter, falling back to
// ~/.config/airfilter.
func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "airfilter")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "airfilter")
}

// loadConfig resolves Config from path (or the default search paths when
// empty), the environment and flags. Only flags the user changed take
// precedence over the other sources.
func loadConfig(flags *pflag.FlagSet, path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("airfilter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := userConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("AIRFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.PromptTimeout < 0 {
		return Config{}, fmt.Errorf("prompt_timeout must not be negative, got %d", cfg.PromptTimeout)
	}
	return cfg, nil
}
