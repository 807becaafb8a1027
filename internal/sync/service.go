package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventBus topics published by the sync service.
const (
	TopicConflictDetected = "sync:conflict_detected"
)

type Service interface {
	// RecordChange stamps the mutation with the account's next cursor and
	// appends it to the change log. The allocation and the insert are one
	// atomic unit in the repository.
	RecordChange(ctx context.Context, accountID string, req domain.RecordChangeRequest) (*domain.Change, error)
	// Sync is the cursor-driven pull: changes since the request cursor,
	// pending conflicts, the account's high-water mark and server time.
	Sync(ctx context.Context, accountID string, req domain.SyncRequest) (*domain.SyncResponse, error)
	// PushChanges applies a batch of client changes in order, running each
	// through conflict detection first. The batch is not atomic: changes
	// recorded before a mid-batch failure stand, so clients must treat push
	// as at-least-once.
	PushChanges(ctx context.Context, accountID string, deviceID string, changes []domain.RecordChangeRequest) ([]domain.SyncConflict, error)
}

func NewService(log logger.Logger, cfg domain.SyncConfig, changeRepo domain.ChangeRepo, conflictRepo domain.ConflictRepo, deviceRepo domain.DeviceRepo, bus EventBus.Bus) Service {
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 500
	}
	return &service{
		log:          log.With().Str("module", "sync").Logger(),
		pageLimit:    pageLimit,
		changeRepo:   changeRepo,
		conflictRepo: conflictRepo,
		deviceRepo:   deviceRepo,
		bus:          bus,
	}
}

type service struct {
	log          zerolog.Logger
	pageLimit    int
	changeRepo   domain.ChangeRepo
	conflictRepo domain.ConflictRepo
	deviceRepo   domain.DeviceRepo
	bus          EventBus.Bus
}

func (s *service) RecordChange(ctx context.Context, accountID string, req domain.RecordChangeRequest) (*domain.Change, error) {
	change, err := s.buildChange(accountID, req)
	if err != nil {
		return nil, err
	}

	if err := s.changeRepo.StoreWithCursor(ctx, change); err != nil {
		return nil, err
	}

	return change, nil
}

func (s *service) Sync(ctx context.Context, accountID string, req domain.SyncRequest) (*domain.SyncResponse, error) {
	device, err := s.deviceRepo.FindByDeviceID(ctx, accountID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "device %s not registered", req.DeviceID)
	}
	if !device.IsActive {
		return nil, errors.Wrapf(domain.ErrInvalidOperation, "device %s is deactivated", req.DeviceID)
	}

	limit := req.Limit
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}

	changes, err := s.changeRepo.FindSince(ctx, accountID, req.Cursor, limit, req.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.conflictRepo.FindPending(ctx, accountID)
	if err != nil {
		return nil, err
	}

	highWater, err := s.changeRepo.CurrentCursor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.deviceRepo.UpdateSyncBookmark(ctx, accountID, req.DeviceID, highWater, now); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("accountID", accountID).
		Str("deviceID", req.DeviceID).
		Int64("sinceCursor", req.Cursor).
		Int("changes", len(changes)).
		Int("conflicts", len(conflicts)).
		Msg("Pull served")

	return &domain.SyncResponse{
		Changes:    changes,
		Cursor:     highWater,
		HasMore:    len(changes) >= limit,
		Conflicts:  conflicts,
		ServerTime: now,
	}, nil
}

func (s *service) PushChanges(ctx context.Context, accountID string, deviceID string, changes []domain.RecordChangeRequest) ([]domain.SyncConflict, error) {
	conflicts := make([]domain.SyncConflict, 0)

	for i := range changes {
		req := changes[i]
		req.DeviceID = deviceID

		last, err := s.changeRepo.FindLatestByItem(ctx, accountID, req.ItemID)
		if err != nil {
			// earlier changes of the batch stay recorded
			return conflicts, err
		}

		conflictType, conflicting := classify(req.ChangeType, last)
		if conflicting {
			conflict, err := s.storeConflict(ctx, accountID, req, conflictType, last)
			if err != nil {
				return conflicts, err
			}
			conflicts = append(conflicts, *conflict)
			continue
		}

		change, err := s.buildChange(accountID, req)
		if err != nil {
			return conflicts, err
		}
		if err := s.changeRepo.StoreWithCursor(ctx, change); err != nil {
			return conflicts, err
		}
	}

	s.log.Debug().
		Str("accountID", accountID).
		Str("deviceID", deviceID).
		Int("pushed", len(changes)).
		Int("conflicts", len(conflicts)).
		Msg("Push applied")

	return conflicts, nil
}

// classify implements the conflict table. Detection is last-writer-relative:
// only the single most recent recorded change for the item matters, since
// the cursor allocator serializes changes per item.
func classify(incoming domain.ChangeType, last *domain.Change) (domain.ConflictType, bool) {
	if last == nil {
		return "", false
	}

	switch {
	case incoming == domain.ChangeTypeModify && last.ChangeType == domain.ChangeTypeModify:
		return domain.ConflictTypeEdit, true
	case incoming == domain.ChangeTypeModify && last.ChangeType == domain.ChangeTypeDelete:
		return domain.ConflictTypeEditDelete, true
	case incoming == domain.ChangeTypeDelete && last.ChangeType == domain.ChangeTypeModify:
		return domain.ConflictTypeDeleteEdit, true
	}

	return "", false
}

// storeConflict persists the rejected push as a pending conflict. The local
// side keeps cursor 0: it was never committed, so no cursor was allocated.
func (s *service) storeConflict(ctx context.Context, accountID string, req domain.RecordChangeRequest, conflictType domain.ConflictType, last *domain.Change) (*domain.SyncConflict, error) {
	local := domain.Change{
		ID:         uuid.NewString(),
		ItemID:     req.ItemID,
		ChangeType: req.ChangeType,
		AccountID:  accountID,
		DeviceID:   req.DeviceID,
		Timestamp:  time.Now().UTC(),
		OldPath:    req.OldPath,
		NewPath:    req.NewPath,
		Checksum:   req.Checksum,
		Metadata:   req.Metadata,
	}

	conflict := &domain.SyncConflict{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		ItemID:       req.ItemID,
		ConflictType: conflictType,
		LocalChange:  local,
		RemoteChange: *last,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.conflictRepo.Store(ctx, conflict); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("accountID", accountID).
		Str("itemID", req.ItemID).
		Str("type", string(conflictType)).
		Msg("Conflict detected")

	if s.bus != nil {
		s.bus.Publish(TopicConflictDetected, domain.NotificationPayload{
			Subject:   "Sync conflict detected",
			Message:   fmt.Sprintf("Item %s has a %s conflict awaiting resolution.", req.ItemID, conflictType),
			Event:     domain.NotificationEventConflictDetected,
			AccountID: accountID,
			Timestamp: time.Now().UTC(),
		})
	}

	return conflict, nil
}

func (s *service) buildChange(accountID string, req domain.RecordChangeRequest) (*domain.Change, error) {
	if req.ItemID == "" {
		return nil, errors.Wrap(domain.ErrInvalidOperation, "item id must not be empty")
	}
	switch req.ChangeType {
	case domain.ChangeTypeCreate, domain.ChangeTypeModify, domain.ChangeTypeDelete, domain.ChangeTypeMove:
	default:
		return nil, errors.Wrapf(domain.ErrInvalidOperation, "unknown change type %q", req.ChangeType)
	}

	return &domain.Change{
		ID:         uuid.NewString(),
		ItemID:     req.ItemID,
		ChangeType: req.ChangeType,
		AccountID:  accountID,
		DeviceID:   req.DeviceID,
		Timestamp:  time.Now().UTC(),
		OldPath:    req.OldPath,
		NewPath:    req.NewPath,
		Checksum:   req.Checksum,
		Metadata:   req.Metadata,
	}, nil
}
