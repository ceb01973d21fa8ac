// Package config loads the eleventy project configuration from
// eleventy.yml, with environment overrides under the ELEVENTY_ prefix.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the project configuration.
type Config struct {
	Input       string       `mapstructure:"input"`
	Output      string       `mapstructure:"output"`
	Snapshot    string       `mapstructure:"snapshot"`
	Collections []string     `mapstructure:"collections"`
	Server      ServerConfig `mapstructure:"server"`
	Watch       WatchConfig  `mapstructure:"watch"`
	Imports     ImportConfig `mapstructure:"imports"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Patterns []string `mapstructure:"patterns"`
	Ignored  []string `mapstructure:"ignored"`
}

// ImportConfig configures layout import spidering.
type ImportConfig struct {
	Spider     bool `mapstructure:"spider"`
	ModuleMode bool `mapstructure:"module_mode"`
}

// Load loads the configuration from eleventy.yml or eleventy.yaml in the
// current directory, falling back to defaults when no file exists.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("input", ".")
	v.SetDefault("output", "_site")
	v.SetDefault("snapshot", ".eleventy/graph.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("watch.patterns", []string{
		"*.md",
		"*.html",
		"*.njk",
		"*.liquid",
		"*.css",
		"*.js",
	})
	v.SetDefault("watch.ignored", []string{
		"*.swp",
		"*.swo",
		"*~",
		".DS_Store",
	})
	v.SetDefault("imports.spider", true)
	v.SetDefault("imports.module_mode", true)

	// Set config name and paths
	v.SetConfigName("eleventy")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("ELEVENTY")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// CollectionNames returns the collection names defined in configuration.
// Config satisfies the dependency map's collection-name source with this.
func (c *Config) CollectionNames() []string {
	return c.Collections
}
