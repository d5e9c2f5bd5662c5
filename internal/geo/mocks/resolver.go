package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Resolver is a mock implementation of geo.Resolver
type Resolver struct {
	mock.Mock
}

// Resolve returns the location for ip
func (m *Resolver) Resolve(ip string) domain.Location {
	args := m.Called(ip)
	return args.Get(0).(domain.Location)
}
