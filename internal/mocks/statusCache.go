package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStatusCache struct {
	mock.Mock
}

func (m *MockStatusCache) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockStatusCache) Set(key string, value string, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockStatusCache) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}
