package server_test

import (
	"time"

	"github.com/stretchr/testify/mock"

	"hopalong/core/internal/models"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveAccount(a *models.Account) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *MockStorage) AccountByID(id string) (*models.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockStorage) AccountByEmail(email string) (*models.Account, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockStorage) CreateRide(r *models.RideRecord) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockStorage) RideByID(id string) (*models.RideRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RideRecord), args.Error(1)
}

func (m *MockStorage) AppendMember(rideID, accountID string) error {
	args := m.Called(rideID, accountID)
	return args.Error(0)
}

func (m *MockStorage) RidesStartingBetween(from, to time.Time) ([]models.RideRecord, error) {
	args := m.Called(from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RideRecord), args.Error(1)
}

func (m *MockStorage) RidesForAccount(accountID string) ([]models.RideRecord, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RideRecord), args.Error(1)
}

func (m *MockStorage) SaveMessage(h *models.ChatHistory) error {
	args := m.Called(h)
	return args.Error(0)
}

func (m *MockStorage) PreviousMessages(rideID string, limit, offset int) ([]models.ChatHistory, error) {
	args := m.Called(rideID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatHistory), args.Error(1)
}

func (m *MockStorage) MarkChannelActive(rideID string) error {
	args := m.Called(rideID)
	return args.Error(0)
}

func (m *MockStorage) ActiveRideIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) ClaimIdempotencyKey(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}
