package shortener

import (
	"context"
)

// Generator defines the interface for allocating slugs
type Generator interface {
	// Generate returns a slug that was free at the time of the check
	Generate(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string
}

// SlugChecker reports whether a slug is already taken
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Config holds configuration for slug generation
type Config struct {
	Length      int `yaml:"length"`
	MaxAttempts int `yaml:"max_attempts" split_words:"true"` // attempts per length
	MaxWiden    int `yaml:"max_widen" split_words:"true"`    // extra characters allowed after exhausting attempts
}

// GeneratorType constants
const (
	TypeRandom = "random"
)

// DefaultConfig returns five-character slugs, five attempts, widening by up to two
func DefaultConfig() Config {
	return Config{
		Length:      5,
		MaxAttempts: 5,
		MaxWiden:    2,
	}
}
