// Package config loads settings from an optional YAML file, VOCABDECK_
// environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix = "VOCABDECK_"

	// DefaultFile is read when --config is not given. A missing default file
	// is not an error.
	DefaultFile = "vocabdeck.yaml"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the resolved application configuration.
type Config struct {
	Backend       string   `koanf:"backend" validate:"oneof=json sqlite"`
	Data          string   `koanf:"data" validate:"required_if=Backend json"`
	Seed          string   `koanf:"seed"`
	DB            string   `koanf:"db" validate:"required_if=Backend sqlite"`
	LogLevel      string   `koanf:"log-level" validate:"oneof=debug info warn error"`
	Addr          string   `koanf:"addr" validate:"required,hostname_port"`
	ReposDir      string   `koanf:"repos-dir" validate:"required"`
	Sources       []string `koanf:"sources" validate:"dive,required"`
	DictionaryURL string   `koanf:"dictionary-url" validate:"omitempty,url"`
}

// Default returns the configuration used for every key no layer sets.
func Default() Config {
	return Config{
		Backend:       "json",
		Data:          "flashcards.json",
		Seed:          "definitions.json",
		DB:            "vocabdeck.db",
		LogLevel:      "info",
		Addr:          "localhost:8080",
		ReposDir:      "repos",
		DictionaryURL: "https://api.dictionaryapi.dev/api/v2/entries/en",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterFlags defines the flags shared by every command.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("config", "", "Path to a YAML config file (default "+DefaultFile+" if present)")
	flags.String("backend", d.Backend, "Collection backend: json or sqlite")
	flags.String("data", d.Data, "Path to the JSON collection file")
	flags.String("seed", d.Seed, "Word list used when no collection exists yet (.json or .yaml)")
	flags.String("db", d.DB, "Path to the SQLite database file")
	flags.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
}

// Load resolves the configuration for a parsed flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, explicit := DefaultFile, false
	if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
		path, explicit = f.Value.String(), true
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// With k passed in, unchanged flags only fill keys that no other layer set.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps VOCABDECK_REPOS_DIR to repos-dir. VOCABDECK_SOURCES is a
// comma-separated list.
func envValue(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_", "-")
	if key == "sources" {
		var sources []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		return key, sources
	}
	return key, value
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
