package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maypok86/otter/v2"
)

const (
	defaultCacheSize = 1_000
	defaultTTL       = 30 * time.Minute
)

type config struct {
	cacheSize int
	ttl       time.Duration
}

// Option configures an Engine.
type Option func(*config)

// WithCacheSize bounds the number of memoized layouts.
func WithCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithTTL sets how long a memoized layout is kept after it is written.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// Engine memoizes Build on a content hash of its input, so a layout is
// recomputed only when duties, month, zone, phases or pending edits change.
type Engine struct {
	cache  *otter.Cache[string, *Data]
	logger *slog.Logger
}

// NewEngine returns an Engine logging to logger.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config{cacheSize: defaultCacheSize, ttl: defaultTTL}
	for _, o := range opts {
		o(&cfg)
	}
	cache := otter.Must(&otter.Options[string, *Data]{
		MaximumSize:      cfg.cacheSize,
		InitialCapacity:  min(cfg.cacheSize, 64),
		ExpiryCalculator: otter.ExpiryWriting[string, *Data](cfg.ttl),
	})
	return &Engine{cache: cache, logger: logger}
}

// Build returns the layout for in, reusing a memoized one when the input is unchanged.
func (e *Engine) Build(in Input) *Data {
	key, err := Key(in)
	if err != nil {
		e.logger.Warn("cannot hash timeline input, building uncached", "error", err)
		return Build(in, e.logger)
	}
	if data, ok := e.cache.GetIfPresent(key); ok {
		e.logger.Debug("timeline cache hit", "key", key[:12])
		return data
	}
	data := Build(in, e.logger)
	e.cache.Set(key, data)
	e.logger.Debug("timeline cache miss", "key", key[:12], "entries", e.cache.EstimatedSize())
	return data
}

// Len is the approximate number of memoized layouts.
func (e *Engine) Len() int {
	return e.cache.EstimatedSize()
}

// Key is the hex SHA-256 of the JSON encoding of in.
func Key(in Input) (string, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding input: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
