package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/prelink-app/identity/internal/models"
)

type MockVerificationRepo struct {
	mock.Mock
}

func (m *MockVerificationRepo) UpsertCurrent(status *models.VerificationStatus) error {
	args := m.Called(status)
	return args.Error(0)
}

func (m *MockVerificationRepo) AppendHistory(attempt *models.VerificationAttempt) (*models.VerificationAttempt, error) {
	args := m.Called(attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationAttempt), args.Error(1)
}

func (m *MockVerificationRepo) GetCurrent(userID string) (*models.VerificationStatus, bool, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.VerificationStatus), args.Bool(1), args.Error(2)
}

func (m *MockVerificationRepo) GetHistory(userID string, limit, offset int) ([]models.VerificationAttempt, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VerificationAttempt), args.Error(1)
}

func (m *MockVerificationRepo) AttachEvidence(requestID, selfieURL, primaryURL, secondaryURL string) error {
	args := m.Called(requestID, selfieURL, primaryURL, secondaryURL)
	return args.Error(0)
}
