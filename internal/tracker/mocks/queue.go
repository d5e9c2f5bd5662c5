package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/tracker"
)

// Queue is a mock implementation of tracker.Queue
type Queue struct {
	mock.Mock
}

// Enqueue hands a click job to the queue
func (m *Queue) Enqueue(ctx context.Context, job domain.ClickJob) bool {
	args := m.Called(ctx, job)
	return args.Bool(0)
}

// Start begins consuming jobs
func (m *Queue) Start(ctx context.Context, handler tracker.Handler) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

// Close stops the queue
func (m *Queue) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
