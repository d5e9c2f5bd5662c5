package service

import (
	"context"
	"fmt"
	"sync"
)

// sequenceGenerator hands out the queued slugs in order, then numbered ones
type sequenceGenerator struct {
	mu    sync.Mutex
	slugs []string
	next  int
	err   error
}

func (g *sequenceGenerator) Generate(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	if len(g.slugs) > 0 {
		slug := g.slugs[0]
		g.slugs = g.slugs[1:]
		return slug, nil
	}
	g.next++
	return fmt.Sprintf("seq%02d", g.next), nil
}

func (g *sequenceGenerator) Type() string {
	return "sequence"
}
