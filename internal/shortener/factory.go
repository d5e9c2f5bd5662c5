package shortener

import (
	"fmt"
)

// MaxSlugLength is the longest slug the store accepts
const MaxSlugLength = 32

// NewGenerator validates config and creates the slug generator
func NewGenerator(config Config, checker SlugChecker) (Generator, error) {
	if checker == nil {
		return nil, fmt.Errorf("slug checker required for random generator")
	}
	if config.Length < 0 || config.MaxAttempts < 0 || config.MaxWiden < 0 {
		return nil, fmt.Errorf("shortener settings must not be negative: %+v", config)
	}
	if config.Length+config.MaxWiden > MaxSlugLength {
		return nil, fmt.Errorf("slug length %d plus widening %d exceeds %d", config.Length, config.MaxWiden, MaxSlugLength)
	}

	return NewRandomGenerator(checker, config), nil
}
