package shortener

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

type checkerFunc func(ctx context.Context, slug string) (bool, error)

func (f checkerFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

func isValidSlug(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

func TestRandomGenerator_Generate_Format(t *testing.T) {
	checker := checkerFunc(func(context.Context, string) (bool, error) { return false, nil })
	g := NewRandomGenerator(checker, DefaultConfig())

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		slug, err := g.Generate(context.Background())
		require.NoError(t, err)
		assert.Len(t, slug, 5)
		assert.True(t, isValidSlug(slug), "slug %q has characters outside the alphabet", slug)
		seen[slug] = true
	}

	// 36^5 space; 200 draws colliding more than a handful of times means the entropy is broken
	assert.Greater(t, len(seen), 190)
}

func TestRandomGenerator_Generate_DeterministicEntropy(t *testing.T) {
	checker := &mockChecker{}
	checker.On("SlugExists", mock.Anything, "aaaaa").Return(false, nil).Once()

	g := newRandomGenerator(checker, DefaultConfig(), bytes.NewReader(make([]byte, 64)))

	slug, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "aaaaa", slug)
	checker.AssertExpectations(t)
}

func TestRandomGenerator_Generate_RejectsBiasedBytes(t *testing.T) {
	// 255 is above the rejection threshold and must be skipped; 1 maps to 'b'
	entropy := bytes.NewReader(append(bytes.Repeat([]byte{255}, 10), bytes.Repeat([]byte{1}, 10)...))
	checker := checkerFunc(func(context.Context, string) (bool, error) { return false, nil })

	g := newRandomGenerator(checker, DefaultConfig(), entropy)

	slug, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bbbbb", slug)
}

func TestRandomGenerator_Generate_RetriesOnCollision(t *testing.T) {
	var calls int32
	checker := checkerFunc(func(context.Context, string) (bool, error) {
		n := atomic.AddInt32(&calls, 1)
		return n < 3, nil
	})

	g := NewRandomGenerator(checker, DefaultConfig())

	slug, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, slug, 5)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRandomGenerator_Generate_WidensAfterMaxAttempts(t *testing.T) {
	var fiveCharChecks int32
	checker := checkerFunc(func(_ context.Context, slug string) (bool, error) {
		if len(slug) == 5 {
			atomic.AddInt32(&fiveCharChecks, 1)
			return true, nil
		}
		return false, nil
	})

	g := NewRandomGenerator(checker, DefaultConfig())

	slug, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, slug, 6)
	assert.Equal(t, int32(5), atomic.LoadInt32(&fiveCharChecks))
}

func TestRandomGenerator_Generate_Exhausted(t *testing.T) {
	checker := &mockChecker{}
	checker.On("SlugExists", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)

	cfg := Config{Length: 5, MaxAttempts: 3, MaxWiden: 1}
	g := NewRandomGenerator(checker, cfg)

	slug, err := g.Generate(context.Background())
	assert.Empty(t, slug)
	assert.ErrorIs(t, err, domain.ErrSlugSpaceExhausted)
	checker.AssertNumberOfCalls(t, "SlugExists", 6)
}

func TestRandomGenerator_Generate_CheckerError(t *testing.T) {
	checker := &mockChecker{}
	checker.On("SlugExists", mock.Anything, mock.AnythingOfType("string")).Return(false, assert.AnError)

	g := NewRandomGenerator(checker, DefaultConfig())

	_, err := g.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to check slug")
}

func TestRandomGenerator_Generate_EntropyError(t *testing.T) {
	checker := &mockChecker{}
	g := newRandomGenerator(checker, DefaultConfig(), bytes.NewReader(nil))

	_, err := g.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read entropy")
	checker.AssertNotCalled(t, "SlugExists", mock.Anything, mock.Anything)
}

func TestRandomGenerator_Generate_ContextCancelled(t *testing.T) {
	checker := &mockChecker{}
	g := NewRandomGenerator(checker, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewRandomGenerator_Defaults(t *testing.T) {
	g := NewRandomGenerator(&mockChecker{}, Config{MaxWiden: -1})

	assert.Equal(t, 5, g.config.Length)
	assert.Equal(t, 5, g.config.MaxAttempts)
	assert.Equal(t, 0, g.config.MaxWiden)
	assert.Equal(t, TypeRandom, g.Type())
}
