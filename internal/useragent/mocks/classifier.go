package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Classifier is a mock implementation of useragent.Classifier
type Classifier struct {
	mock.Mock
}

// Classify returns the device info for raw
func (m *Classifier) Classify(raw string) domain.DeviceInfo {
	args := m.Called(raw)
	return args.Get(0).(domain.DeviceInfo)
}
