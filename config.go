package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the resolved configuration: defaults < config file < LENS_*
// environment < flags.
type Config struct {
	MaxFileSize       int64     `mapstructure:"max_file_size"`
	BinaryExtensions  []string  `mapstructure:"binary_extensions"`
	Exclude           []string  `mapstructure:"exclude"`
	Allow             []string  `mapstructure:"allow"`
	ProgressEvery     int       `mapstructure:"progress_every"`
	Tokenizer         string    `mapstructure:"tokenizer"`
	TokenizerEncoding string    `mapstructure:"tokenizer_encoding"`
	Model             string    `mapstructure:"model"`
	TokenizerFile     string    `mapstructure:"tokenizer_file"`
	NoTokens          bool      `mapstructure:"no_tokens"`
	Sections          []Section `mapstructure:"sections"`
	SectionsFile      string    `mapstructure:"sections_file"`
	Addr              string    `mapstructure:"addr"`
	Debug             bool      `mapstructure:"debug"`
}

var cfgFile string

func setConfigDefaults() {
	viper.SetDefault("max_file_size", DefaultMaxFileSize)
	viper.SetDefault("binary_extensions", []string{})
	viper.SetDefault("exclude", []string{})
	viper.SetDefault("allow", []string{})
	viper.SetDefault("progress_every", defaultProgressEvery)
	viper.SetDefault("tokenizer", "tiktoken")
	viper.SetDefault("tokenizer_encoding", defaultEncoding)
	viper.SetDefault("model", "")
	viper.SetDefault("tokenizer_file", "")
	viper.SetDefault("no_tokens", false)
	viper.SetDefault("sections_file", "")
	viper.SetDefault("addr", "127.0.0.1:7420")
	viper.SetDefault("debug", false)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Join(home, ".config", "lens"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("LENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

// loadConfig decodes viper state into a Config and resolves sections.
func loadConfig() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding configuration: %w", err)
	}
	sections, err := resolveSections(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Sections = sections
	return &cfg, nil
}

func resolveSections(cfg Config) ([]Section, error) {
	switch {
	case cfg.SectionsFile != "":
		return loadSectionsFile(cfg.SectionsFile)
	case len(cfg.Sections) > 0:
		return normalizeSections(cfg.Sections)
	default:
		return normalizeSections(defaultSections)
	}
}

// tokenizerConfig returns the tokenizer selection from cfg.
func (c *Config) tokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		Type:     c.Tokenizer,
		Encoding: c.TokenizerEncoding,
		Model:    c.Model,
		File:     c.TokenizerFile,
	}
}

// newScanner wires a Scanner from cfg.
func (c *Config) newScanner(logger *zap.Logger) *Scanner {
	var load TokenizerLoader
	if !c.NoTokens {
		load = NewTokenizerLoader(c.tokenizerConfig())
	}
	return NewScanner(ScannerOptions{
		Classifier:    NewClassifier(c.MaxFileSize, c.BinaryExtensions),
		Tokens:        NewTokenCounter(load, logger),
		Sections:      c.Sections,
		Excludes:      c.Exclude,
		Allow:         c.Allow,
		ProgressEvery: c.ProgressEvery,
	}, logger)
}
