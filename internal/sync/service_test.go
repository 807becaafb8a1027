package sync

import (
	"context"
	"testing"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChangeRepo is a mock for domain.ChangeRepo
type MockChangeRepo struct {
	mock.Mock
}

func (m *MockChangeRepo) StoreWithCursor(ctx context.Context, change *domain.Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockChangeRepo) FindSince(ctx context.Context, accountID string, cursor int64, limit int, includeDeleted bool) ([]domain.Change, error) {
	args := m.Called(ctx, accountID, cursor, limit, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Change), args.Error(1)
}

func (m *MockChangeRepo) FindLatestByItem(ctx context.Context, accountID string, itemID string) (*domain.Change, error) {
	args := m.Called(ctx, accountID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Change), args.Error(1)
}

func (m *MockChangeRepo) CurrentCursor(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChangeRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockConflictRepo is a mock for domain.ConflictRepo
type MockConflictRepo struct {
	mock.Mock
}

func (m *MockConflictRepo) Store(ctx context.Context, conflict *domain.SyncConflict) error {
	args := m.Called(ctx, conflict)
	return args.Error(0)
}

func (m *MockConflictRepo) FindByID(ctx context.Context, id string) (*domain.SyncConflict, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncConflict), args.Error(1)
}

func (m *MockConflictRepo) FindPending(ctx context.Context, accountID string) ([]domain.SyncConflict, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncConflict), args.Error(1)
}

func (m *MockConflictRepo) Update(ctx context.Context, conflict *domain.SyncConflict) error {
	args := m.Called(ctx, conflict)
	return args.Error(0)
}

func (m *MockConflictRepo) DeleteResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

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

func newTestService(changeRepo *MockChangeRepo, conflictRepo *MockConflictRepo, deviceRepo *MockDeviceRepo) Service {
	return NewService(logger.Mock(), domain.SyncConfig{PageLimit: 500}, changeRepo, conflictRepo, deviceRepo, nil)
}

func TestService_RecordChange(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	svc := newTestService(changeRepo, new(MockConflictRepo), new(MockDeviceRepo))
	ctx := context.Background()

	changeRepo.On("StoreWithCursor", ctx, mock.MatchedBy(func(c *domain.Change) bool {
		return c.AccountID == "acct-1" && c.ItemID == "item-1" && c.ChangeType == domain.ChangeTypeCreate && c.ID != ""
	})).Return(nil)

	change, err := svc.RecordChange(ctx, "acct-1", domain.RecordChangeRequest{
		ItemID:     "item-1",
		ChangeType: domain.ChangeTypeCreate,
		NewPath:    "/docs/a.txt",
	})
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, "/docs/a.txt", change.NewPath)
	assert.False(t, change.Timestamp.IsZero())

	changeRepo.AssertExpectations(t)
}

func TestService_RecordChange_Validation(t *testing.T) {
	svc := newTestService(new(MockChangeRepo), new(MockConflictRepo), new(MockDeviceRepo))
	ctx := context.Background()

	t.Run("empty item id", func(t *testing.T) {
		_, err := svc.RecordChange(ctx, "acct-1", domain.RecordChangeRequest{ChangeType: domain.ChangeTypeCreate})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	})

	t.Run("unknown change type", func(t *testing.T) {
		_, err := svc.RecordChange(ctx, "acct-1", domain.RecordChangeRequest{ItemID: "item-1", ChangeType: "TOUCH"})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	})
}

func TestService_Sync(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	conflictRepo := new(MockConflictRepo)
	deviceRepo := new(MockDeviceRepo)
	svc := newTestService(changeRepo, conflictRepo, deviceRepo)
	ctx := context.Background()

	device := &domain.SyncDevice{ID: "uuid-1", AccountID: "acct-1", DeviceID: "dev-1", IsActive: true}
	deviceRepo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)

	changes := []domain.Change{
		{ID: "chg-6", Cursor: 6},
		{ID: "chg-7", Cursor: 7},
	}
	changeRepo.On("FindSince", ctx, "acct-1", int64(5), 100, false).Return(changes, nil)
	conflictRepo.On("FindPending", ctx, "acct-1").Return([]domain.SyncConflict{}, nil)
	changeRepo.On("CurrentCursor", ctx, "acct-1").Return(int64(7), nil)
	deviceRepo.On("UpdateSyncBookmark", ctx, "acct-1", "dev-1", int64(7), mock.Anything).Return(nil)

	res, err := svc.Sync(ctx, "acct-1", domain.SyncRequest{DeviceID: "dev-1", Cursor: 5, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 7, res.Cursor, "response cursor is the account high-water mark")
	assert.False(t, res.HasMore, "short page means caught up")
	assert.Len(t, res.Changes, 2)
	assert.False(t, res.ServerTime.IsZero())

	changeRepo.AssertExpectations(t)
	deviceRepo.AssertExpectations(t)
}

func TestService_Sync_FullPageSetsHasMore(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	conflictRepo := new(MockConflictRepo)
	deviceRepo := new(MockDeviceRepo)
	svc := newTestService(changeRepo, conflictRepo, deviceRepo)
	ctx := context.Background()

	device := &domain.SyncDevice{DeviceID: "dev-1", IsActive: true}
	deviceRepo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)

	changeRepo.On("FindSince", ctx, "acct-1", int64(0), 2, false).
		Return([]domain.Change{{Cursor: 1}, {Cursor: 2}}, nil)
	conflictRepo.On("FindPending", ctx, "acct-1").Return([]domain.SyncConflict{}, nil)
	changeRepo.On("CurrentCursor", ctx, "acct-1").Return(int64(9), nil)
	deviceRepo.On("UpdateSyncBookmark", ctx, "acct-1", "dev-1", int64(9), mock.Anything).Return(nil)

	res, err := svc.Sync(ctx, "acct-1", domain.SyncRequest{DeviceID: "dev-1", Limit: 2})
	require.NoError(t, err)
	assert.True(t, res.HasMore)
}

func TestService_Sync_ClampsLimit(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	conflictRepo := new(MockConflictRepo)
	deviceRepo := new(MockDeviceRepo)
	svc := newTestService(changeRepo, conflictRepo, deviceRepo)
	ctx := context.Background()

	device := &domain.SyncDevice{DeviceID: "dev-1", IsActive: true}
	deviceRepo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)

	// requested 100000, served at the configured page limit
	changeRepo.On("FindSince", ctx, "acct-1", int64(0), 500, false).Return([]domain.Change{}, nil)
	conflictRepo.On("FindPending", ctx, "acct-1").Return([]domain.SyncConflict{}, nil)
	changeRepo.On("CurrentCursor", ctx, "acct-1").Return(int64(0), nil)
	deviceRepo.On("UpdateSyncBookmark", ctx, "acct-1", "dev-1", int64(0), mock.Anything).Return(nil)

	_, err := svc.Sync(ctx, "acct-1", domain.SyncRequest{DeviceID: "dev-1", Limit: 100000})
	require.NoError(t, err)
	changeRepo.AssertExpectations(t)
}

func TestService_Sync_UnregisteredDevice(t *testing.T) {
	deviceRepo := new(MockDeviceRepo)
	svc := newTestService(new(MockChangeRepo), new(MockConflictRepo), deviceRepo)
	ctx := context.Background()

	deviceRepo.On("FindByDeviceID", ctx, "acct-1", "dev-ghost").Return(nil, nil)

	_, err := svc.Sync(ctx, "acct-1", domain.SyncRequest{DeviceID: "dev-ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Sync_DeactivatedDevice(t *testing.T) {
	deviceRepo := new(MockDeviceRepo)
	svc := newTestService(new(MockChangeRepo), new(MockConflictRepo), deviceRepo)
	ctx := context.Background()

	device := &domain.SyncDevice{DeviceID: "dev-1", IsActive: false}
	deviceRepo.On("FindByDeviceID", ctx, "acct-1", "dev-1").Return(device, nil)

	_, err := svc.Sync(ctx, "acct-1", domain.SyncRequest{DeviceID: "dev-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestService_PushChanges_NoConflict(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	svc := newTestService(changeRepo, new(MockConflictRepo), new(MockDeviceRepo))
	ctx := context.Background()

	changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-1").Return(nil, nil)
	changeRepo.On("StoreWithCursor", ctx, mock.MatchedBy(func(c *domain.Change) bool {
		return c.ItemID == "item-1" && c.DeviceID == "dev-1"
	})).Return(nil)

	conflicts, err := svc.PushChanges(ctx, "acct-1", "dev-1", []domain.RecordChangeRequest{
		{ItemID: "item-1", ChangeType: domain.ChangeTypeCreate},
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	changeRepo.AssertExpectations(t)
}

func TestService_PushChanges_ConflictTable(t *testing.T) {
	tests := []struct {
		name     string
		incoming domain.ChangeType
		recorded domain.ChangeType
		want     domain.ConflictType
	}{
		{"modify vs modify", domain.ChangeTypeModify, domain.ChangeTypeModify, domain.ConflictTypeEdit},
		{"modify vs delete", domain.ChangeTypeModify, domain.ChangeTypeDelete, domain.ConflictTypeEditDelete},
		{"delete vs modify", domain.ChangeTypeDelete, domain.ChangeTypeModify, domain.ConflictTypeDeleteEdit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changeRepo := new(MockChangeRepo)
			conflictRepo := new(MockConflictRepo)
			svc := newTestService(changeRepo, conflictRepo, new(MockDeviceRepo))
			ctx := context.Background()

			last := &domain.Change{ID: "chg-old", ItemID: "item-1", ChangeType: tt.recorded, Cursor: 9}
			changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-1").Return(last, nil)
			conflictRepo.On("Store", ctx, mock.MatchedBy(func(c *domain.SyncConflict) bool {
				return c.ConflictType == tt.want &&
					c.RemoteChange.ID == "chg-old" &&
					c.LocalChange.Cursor == 0
			})).Return(nil)

			conflicts, err := svc.PushChanges(ctx, "acct-1", "dev-1", []domain.RecordChangeRequest{
				{ItemID: "item-1", ChangeType: tt.incoming},
			})
			require.NoError(t, err)
			require.Len(t, conflicts, 1)
			assert.Equal(t, tt.want, conflicts[0].ConflictType)

			// the conflicting change is never committed to the log
			changeRepo.AssertNotCalled(t, "StoreWithCursor", mock.Anything, mock.Anything)
			conflictRepo.AssertExpectations(t)
		})
	}
}

func TestService_PushChanges_NonConflictingPairs(t *testing.T) {
	// creates and moves never conflict, nor does anything against them
	tests := []struct {
		name     string
		incoming domain.ChangeType
		recorded domain.ChangeType
	}{
		{"create after delete", domain.ChangeTypeCreate, domain.ChangeTypeDelete},
		{"move after modify", domain.ChangeTypeMove, domain.ChangeTypeModify},
		{"modify after create", domain.ChangeTypeModify, domain.ChangeTypeCreate},
		{"modify after move", domain.ChangeTypeModify, domain.ChangeTypeMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changeRepo := new(MockChangeRepo)
			svc := newTestService(changeRepo, new(MockConflictRepo), new(MockDeviceRepo))
			ctx := context.Background()

			last := &domain.Change{ID: "chg-old", ItemID: "item-1", ChangeType: tt.recorded, Cursor: 3}
			changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-1").Return(last, nil)
			changeRepo.On("StoreWithCursor", ctx, mock.Anything).Return(nil)

			conflicts, err := svc.PushChanges(ctx, "acct-1", "dev-1", []domain.RecordChangeRequest{
				{ItemID: "item-1", ChangeType: tt.incoming},
			})
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		})
	}
}

func TestService_PushChanges_MidBatchFailure(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	svc := newTestService(changeRepo, new(MockConflictRepo), new(MockDeviceRepo))
	ctx := context.Background()

	changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-1").Return(nil, nil)
	changeRepo.On("StoreWithCursor", ctx, mock.MatchedBy(func(c *domain.Change) bool {
		return c.ItemID == "item-1"
	})).Return(nil).Once()
	changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-2").
		Return(nil, errors.Wrap(domain.ErrStorage, "db gone"))

	_, err := svc.PushChanges(ctx, "acct-1", "dev-1", []domain.RecordChangeRequest{
		{ItemID: "item-1", ChangeType: domain.ChangeTypeCreate},
		{ItemID: "item-2", ChangeType: domain.ChangeTypeCreate},
		{ItemID: "item-3", ChangeType: domain.ChangeTypeCreate},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)

	// item-1 stands, item-3 was never attempted
	changeRepo.AssertNumberOfCalls(t, "StoreWithCursor", 1)
	changeRepo.AssertNotCalled(t, "FindLatestByItem", ctx, "acct-1", "item-3")
}

func TestService_PushChanges_MixedBatch(t *testing.T) {
	changeRepo := new(MockChangeRepo)
	conflictRepo := new(MockConflictRepo)
	svc := newTestService(changeRepo, conflictRepo, new(MockDeviceRepo))
	ctx := context.Background()

	// item-1 is clean, item-2 collides; both verdicts come back in one reply
	changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-1").Return(nil, nil)
	changeRepo.On("StoreWithCursor", ctx, mock.Anything).Return(nil)

	last := &domain.Change{ID: "chg-old", ItemID: "item-2", ChangeType: domain.ChangeTypeModify, Cursor: 4}
	changeRepo.On("FindLatestByItem", ctx, "acct-1", "item-2").Return(last, nil)
	conflictRepo.On("Store", ctx, mock.Anything).Return(nil)

	conflicts, err := svc.PushChanges(ctx, "acct-1", "dev-1", []domain.RecordChangeRequest{
		{ItemID: "item-1", ChangeType: domain.ChangeTypeCreate},
		{ItemID: "item-2", ChangeType: domain.ChangeTypeModify},
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "item-2", conflicts[0].ItemID)
}
