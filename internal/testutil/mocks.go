package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
)

// ==================== MOCK USER REPOSITORY ====================

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id uint, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// ==================== MOCK REFRESH TOKEN REPOSITORY ====================

// MockRefreshTokenRepository implements repository.RefreshTokenRepository for testing
type MockRefreshTokenRepository struct {
	mock.Mock
}

var _ repository.RefreshTokenRepository = (*MockRefreshTokenRepository)(nil)

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Rotate(ctx context.Context, currentID uint, successor *models.RefreshToken) error {
	args := m.Called(ctx, currentID, successor)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// ==================== MOCK SENSOR REPOSITORY ====================

// MockSensorRepository implements repository.SensorRepository for testing
type MockSensorRepository struct {
	mock.Mock
}

var _ repository.SensorRepository = (*MockSensorRepository)(nil)

func (m *MockSensorRepository) CreateDevice(ctx context.Context, device *models.SensorDevice) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockSensorRepository) FindDeviceByID(ctx context.Context, id uint) (*models.SensorDevice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SensorDevice), args.Error(1)
}

func (m *MockSensorRepository) FindActiveDeviceByKeyHash(ctx context.Context, keyHash string) (*models.SensorDevice, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SensorDevice), args.Error(1)
}

func (m *MockSensorRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSensorRepository) ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]models.SensorDevice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SensorDevice), args.Error(1)
}

func (m *MockSensorRepository) ToggleActive(ctx context.Context, id uint) (*models.SensorDevice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SensorDevice), args.Error(1)
}

func (m *MockSensorRepository) InsertReading(ctx context.Context, reading *models.SensorReading, notAfter time.Time) error {
	args := m.Called(ctx, reading, notAfter)
	return args.Error(0)
}

func (m *MockSensorRepository) ListReadings(ctx context.Context, deviceID uint, since *time.Time, limit int) ([]models.SensorReading, error) {
	args := m.Called(ctx, deviceID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SensorReading), args.Error(1)
}

// ==================== MOCK GAME REPOSITORY ====================

// MockGameRepository implements repository.GameRepository for testing
type MockGameRepository struct {
	mock.Mock
}

var _ repository.GameRepository = (*MockGameRepository)(nil)

func (m *MockGameRepository) ListItems(ctx context.Context, category string) ([]models.GameItem, error) {
	args := m.Called(ctx, category)
	items, _ := args.Get(0).([]models.GameItem)
	return items, args.Error(1)
}

func (m *MockGameRepository) FindItem(ctx context.Context, id uint) (*models.GameItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameItem), args.Error(1)
}

func (m *MockGameRepository) Balance(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGameRepository) TopUp(ctx context.Context, userID uint, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGameRepository) Adopt(ctx context.Context, adoption *models.Adoption) error {
	args := m.Called(ctx, adoption)
	return args.Error(0)
}

func (m *MockGameRepository) FindAdoption(ctx context.Context, userID, productID uint) (*models.Adoption, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Adoption), args.Error(1)
}

func (m *MockGameRepository) ListAdoptions(ctx context.Context, userID uint) ([]repository.AdoptionDetail, error) {
	args := m.Called(ctx, userID)
	details, _ := args.Get(0).([]repository.AdoptionDetail)
	return details, args.Error(1)
}

func (m *MockGameRepository) SetNickname(ctx context.Context, userID, adoptionID uint, nickname *string) (*models.Adoption, error) {
	args := m.Called(ctx, userID, adoptionID, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Adoption), args.Error(1)
}

func (m *MockGameRepository) DeleteAdoption(ctx context.Context, userID, adoptionID uint) error {
	args := m.Called(ctx, userID, adoptionID)
	return args.Error(0)
}

func (m *MockGameRepository) PerformAction(ctx context.Context, action *models.UserAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockGameRepository) ListActionsByProduct(ctx context.Context, productID uint, limit int) ([]repository.ActionDetail, error) {
	args := m.Called(ctx, productID, limit)
	actions, _ := args.Get(0).([]repository.ActionDetail)
	return actions, args.Error(1)
}

func (m *MockGameRepository) ListActionsByUser(ctx context.Context, userID uint, limit int) ([]repository.ActionDetail, error) {
	args := m.Called(ctx, userID, limit)
	actions, _ := args.Get(0).([]repository.ActionDetail)
	return actions, args.Error(1)
}

func (m *MockGameRepository) Stats(ctx context.Context, userID uint) (*repository.GameStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.GameStats), args.Error(1)
}

func (m *MockGameRepository) CountGoals(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGameRepository) CreateGoals(ctx context.Context, goals []models.CommunityGoal) error {
	args := m.Called(ctx, goals)
	return args.Error(0)
}

func (m *MockGameRepository) ActiveGoals(ctx context.Context, at time.Time) ([]models.CommunityGoal, error) {
	args := m.Called(ctx, at)
	goals, _ := args.Get(0).([]models.CommunityGoal)
	return goals, args.Error(1)
}
