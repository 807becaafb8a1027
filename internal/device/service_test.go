package device

import (
	"context"
	"testing"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDeviceRepo is a mock for domain.DeviceRepo
type MockDeviceRepo struct {
	mock.Mock
}

func (m *MockDeviceRepo) FindByDeviceID(ctx context.Context, accountID string, deviceID string) (*domain.SyncDevice, error) {
	args := m.Called(ctx, accountID, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncDevice), args.Error(1)
}

func (m *MockDeviceRepo) ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error) {
	args := m.Called(ctx, deviceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeviceRepo) List(ctx context.Context, accountID string, activeOnly bool) ([]domain.SyncDevice, error) {
	args := m.Called(ctx, accountID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncDevice), args.Error(1)
}

func (m *MockDeviceRepo) Store(ctx context.Context, device *domain.SyncDevice) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDeviceRepo) Update(ctx context.Context, device *domain.SyncDevice) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDeviceRepo) UpdateSyncBookmark(ctx context.Context, accountID string, deviceID string, cursor int64, syncedAt time.Time) error {
	args := m.Called(ctx, accountID, deviceID, cursor, syncedAt)
	return args.Error(0)
}

func (m *MockDeviceRepo) Delete(ctx context.Context, accountID string, deviceID string) error {
	args := m.Called(ctx, accountID, deviceID)
	return args.Error(0)
}

func TestService_Register_NewDevice(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	repo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(nil, nil)
	repo.On("Store", ctx, mock.MatchedBy(func(d *domain.SyncDevice) bool {
		return d.AccountID == "acct-1" && d.DeviceID == "dev-1" && d.IsActive && d.ID != ""
	})).Return(nil)

	registered, err := svc.Register(ctx, "acct-1", domain.RegisterDeviceRequest{
		DeviceID:   "dev-1",
		DeviceName: "Laptop",
		DeviceType: domain.DeviceTypeDesktopLinux,
	})
	require.NoError(t, err)
	require.NotNil(t, registered)
	assert.True(t, registered.IsActive)
	assert.Equal(t, domain.DeviceTypeDesktopLinux, registered.DeviceType)

	repo.AssertExpectations(t)
}

func TestService_Register_DefaultsDeviceType(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	repo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(nil, nil)
	repo.On("Store", ctx, mock.Anything).Return(nil)

	registered, err := svc.Register(ctx, "acct-1", domain.RegisterDeviceRequest{DeviceID: "dev-1", DeviceName: "Box"})
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceTypeOther, registered.DeviceType)
}

func TestService_Register_Idempotent(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	existing := &domain.SyncDevice{
		ID:         "uuid-1",
		AccountID:  "acct-1",
		DeviceID:   "dev-1",
		DeviceName: "Old name",
		DeviceType: domain.DeviceTypeDesktopMac,
		IsActive:   false,
	}
	repo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(existing, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(d *domain.SyncDevice) bool {
		return d.ID == "uuid-1" && d.DeviceName == "New name" && d.IsActive
	})).Return(nil)

	registered, err := svc.Register(ctx, "acct-1", domain.RegisterDeviceRequest{
		DeviceID:   "dev-1",
		DeviceName: "New name",
	})
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", registered.ID, "re-registration must not create a second device")
	assert.True(t, registered.IsActive, "re-registration reactivates")
	assert.Equal(t, domain.DeviceTypeDesktopMac, registered.DeviceType, "empty type keeps the stored one")

	repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_Register_EmptyDeviceID(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)

	_, err := svc.Register(context.Background(), "acct-1", domain.RegisterDeviceRequest{DeviceName: "Laptop"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestService_Deactivate(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	device := &domain.SyncDevice{ID: "uuid-1", AccountID: "acct-1", DeviceID: "dev-1", IsActive: true}
	repo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(d *domain.SyncDevice) bool {
		return d.ID == "uuid-1" && !d.IsActive
	})).Return(nil)

	require.NoError(t, svc.Deactivate(ctx, "acct-1", "dev-1"))
	repo.AssertExpectations(t)
}

func TestService_Deactivate_UnknownDevice(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	repo.On("FindByDeviceID", ctx, "acct-1", "dev-ghost").Return(nil, nil)
	repo.On("ExistsByDeviceID", ctx, "dev-ghost").Return(false, nil)

	err := svc.Deactivate(ctx, "acct-1", "dev-ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Deactivate_ForeignDevice(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	repo.On("FindByDeviceID", ctx, "acct-1", "dev-2").Return(nil, nil)
	repo.On("ExistsByDeviceID", ctx, "dev-2").Return(true, nil)

	err := svc.Deactivate(ctx, "acct-1", "dev-2")
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestService_Remove(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	device := &domain.SyncDevice{ID: "uuid-1", AccountID: "acct-1", DeviceID: "dev-1", IsActive: true}
	repo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)
	repo.On("Delete", ctx, "acct-1", "dev-1").Return(nil)

	require.NoError(t, svc.Remove(ctx, "acct-1", "dev-1"))
	repo.AssertExpectations(t)
}

func TestService_List(t *testing.T) {
	repo := new(MockDeviceRepo)
	svc := NewService(logger.Mock(), repo, nil)
	ctx := context.Background()

	repo.On("List", ctx, "acct-1", true).Return([]domain.SyncDevice{{DeviceID: "dev-1"}}, nil)

	devices, err := svc.List(ctx, "acct-1", true)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}
