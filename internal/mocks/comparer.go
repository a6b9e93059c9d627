package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockComparer struct {
	mock.Mock
}

func (m *MockComparer) Compare(ctx context.Context, source, target []byte, threshold float64) (float64, error) {
	args := m.Called(ctx, source, target, threshold)
	return args.Get(0).(float64), args.Error(1)
}
