package kozo

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the world settings that can be loaded from a file.
type Config struct {
	// InitialCapacity is the number of entities to pre-allocate metadata for.
	InitialCapacity int `yaml:"initial_capacity"`
	// ChunkSize is the number of rows stored per table chunk.
	ChunkSize int `yaml:"chunk_size"`
	// LogLevel enables a production zap logger at the given level when no
	// logger is passed with WithLogger. Empty keeps logging disabled.
	LogLevel string `yaml:"log_level"`
}

// LoadConfig decodes a YAML config. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "kozo: decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config values.
func (c Config) Validate() error {
	if c.InitialCapacity < 0 {
		return errors.Newf("kozo: initial_capacity must not be negative, got %d", c.InitialCapacity)
	}
	if c.ChunkSize < 0 {
		return errors.Newf("kozo: chunk_size must not be negative, got %d", c.ChunkSize)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrapf(err, "kozo: log_level")
		}
	}
	return nil
}

// logger builds the production logger for LogLevel. An unknown level still
// reports warnings.
func (c Config) logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

type options struct {
	cfg    Config
	logger *zap.Logger
}

// Option configures a World.
type Option func(*options)

// WithLogger sets the logger used for debug records. The default discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInitialCapacity pre-allocates metadata for n entities.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.cfg.InitialCapacity = n
	}
}

// WithChunkSize sets the number of rows stored per table chunk.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.cfg.ChunkSize = n
	}
}

// WithConfig applies a loaded Config. Later options override its fields.
// Invalid values are reported as a warning by NewWorld and replaced by
// defaults.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.cfg = c
	}
}
