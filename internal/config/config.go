package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides, e.g. DECKSMITH_SERVER_ADDR.
const EnvPrefix = "DECKSMITH_"

// Config holds every setting of the CLI and HTTP server.
type Config struct {
	Deck   DeckConfig   `koanf:"deck"`
	Import ImportConfig `koanf:"import"`
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

// DeckConfig holds defaults for exported decks.
type DeckConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Description string `koanf:"description"`
}

// ImportConfig selects which notes an import keeps: "both" or "either".
type ImportConfig struct {
	Policy string `koanf:"policy" validate:"oneof=both either"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string   `koanf:"addr" validate:"required"`
	Origins   []string `koanf:"origins" validate:"dive,required"`
	MaxUpload int64    `koanf:"maxupload" validate:"min=1"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Deck:   DeckConfig{Name: "My Deck"},
		Import: ImportConfig{Policy: "both"},
		Server: ServerConfig{
			Addr:      ":8080",
			Origins:   []string{"http://localhost:3000"},
			MaxUpload: 64 << 20,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"deck-name":   "deck.name",
	"description": "deck.description",
	"policy":      "import.policy",
	"addr":        "server.addr",
	"cors-origin": "server.origins",
	"max-upload":  "server.maxupload",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// Load builds the configuration from, in increasing precedence, the
// defaults, the YAML file at path (skipped when path is empty), DECKSMITH_
// environment variables and the flags in fs that were set explicitly.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// ZeroFields replaces default slices instead of overwriting them index by index.
	cfg := Default()
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			ZeroFields:       true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns DECKSMITH_SERVER_ORIGINS=a,b into server.origins=[a b].
func envKey(name, value string) (string, interface{}) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_", ".")
	if key == "server.origins" {
		return key, strings.Split(value, ",")
	}
	return key, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RegisterFlags declares the flags Load understands for a command.
// Only the names listed are added.
func RegisterFlags(fs *pflag.FlagSet, names ...string) {
	d := Default()
	for _, name := range names {
		switch name {
		case "deck-name":
			fs.String(name, d.Deck.Name, "name of the exported deck")
		case "description":
			fs.String(name, d.Deck.Description, "description of the exported deck")
		case "policy":
			fs.String(name, d.Import.Policy, `notes to keep on import: "both" sides non-empty or "either"`)
		case "addr":
			fs.String(name, d.Server.Addr, "address the HTTP server listens on")
		case "cors-origin":
			fs.StringSlice(name, d.Server.Origins, "origin allowed to call the HTTP API (repeatable)")
		case "max-upload":
			fs.Int64(name, d.Server.MaxUpload, "largest accepted upload in bytes")
		case "log-level":
			fs.String(name, d.Log.Level, "log level: debug, info, warn or error")
		case "log-format":
			fs.String(name, d.Log.Format, "log format: text or json")
		}
	}
}

// NewLogger returns a slog logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
