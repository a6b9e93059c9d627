package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadImage(ctx context.Context, data []byte, publicID string) (string, error) {
	args := m.Called(ctx, data, publicID)
	return args.String(0), args.Error(1)
}
