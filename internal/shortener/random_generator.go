package shortener

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Alphabet is the set of characters slugs are drawn from
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// largest multiple of len(Alphabet) that fits in a byte; bytes at or above it are rejected
const rejectAbove = 256 - 256%len(Alphabet)

// RandomGenerator draws slugs from crypto/rand and checks them against the store
type RandomGenerator struct {
	checker SlugChecker
	config  Config
	entropy io.Reader
}

// NewRandomGenerator creates a generator backed by crypto/rand
func NewRandomGenerator(checker SlugChecker, config Config) *RandomGenerator {
	return newRandomGenerator(checker, config, rand.Reader)
}

func newRandomGenerator(checker SlugChecker, config Config, entropy io.Reader) *RandomGenerator {
	def := DefaultConfig()
	if config.Length <= 0 {
		config.Length = def.Length
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.MaxWiden < 0 {
		config.MaxWiden = 0
	}
	return &RandomGenerator{
		checker: checker,
		config:  config,
		entropy: entropy,
	}
}

// Generate tries MaxAttempts candidates at the configured length, then widens
// the slug by one character at a time up to MaxWiden extra characters.
func (g *RandomGenerator) Generate(ctx context.Context) (string, error) {
	for length := g.config.Length; length <= g.config.Length+g.config.MaxWiden; length++ {
		for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			slug, err := g.randomSlug(length)
			if err != nil {
				return "", fmt.Errorf("failed to read entropy: %w", err)
			}

			taken, err := g.checker.SlugExists(ctx, slug)
			if err != nil {
				return "", fmt.Errorf("failed to check slug %s: %w", slug, err)
			}
			if !taken {
				return slug, nil
			}
		}
	}

	return "", domain.ErrSlugSpaceExhausted
}

func (g *RandomGenerator) randomSlug(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(out) < length {
		if _, err := io.ReadFull(g.entropy, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// Type returns the generator type
func (g *RandomGenerator) Type() string {
	return TypeRandom
}

var _ Generator = (*RandomGenerator)(nil)
