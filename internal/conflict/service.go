package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
)

// EventBus topics published by the conflict service.
const (
	TopicConflictResolved = "sync:conflict_resolved"
)

type Service interface {
	GetPending(ctx context.Context, accountID string) ([]domain.SyncConflict, error)
	// Resolve records the caller's decision for a pending conflict. It only
	// bookkeeps: re-applying the winning side's content happens through a
	// fresh push, never here. Resolving twice is an error.
	Resolve(ctx context.Context, accountID string, conflictID string, resolution domain.ConflictResolution) (*domain.SyncConflict, error)
}

func NewService(log logger.Logger, repo domain.ConflictRepo, bus EventBus.Bus) Service {
	return &service{
		log:  log.With().Str("module", "conflict").Logger(),
		repo: repo,
		bus:  bus,
	}
}

type service struct {
	log  zerolog.Logger
	repo domain.ConflictRepo
	bus  EventBus.Bus
}

func (s *service) GetPending(ctx context.Context, accountID string) ([]domain.SyncConflict, error) {
	return s.repo.FindPending(ctx, accountID)
}

func (s *service) Resolve(ctx context.Context, accountID string, conflictID string, resolution domain.ConflictResolution) (*domain.SyncConflict, error) {
	if !domain.ValidResolution(resolution) {
		return nil, errors.Wrapf(domain.ErrInvalidOperation, "unknown resolution %q", resolution)
	}

	conflict, err := s.repo.FindByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "conflict %s not found", conflictID)
	}
	if conflict.AccountID != accountID {
		return nil, errors.Wrapf(domain.ErrAuthorization, "conflict %s belongs to another account", conflictID)
	}
	if !conflict.IsPending() {
		return nil, errors.Wrapf(domain.ErrInvalidOperation, "conflict %s is already resolved", conflictID)
	}

	now := time.Now().UTC()
	conflict.Resolution = &resolution
	conflict.ResolvedAt = &now

	if err := s.repo.Update(ctx, conflict); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("accountID", accountID).
		Str("conflictID", conflictID).
		Str("resolution", string(resolution)).
		Msg("Conflict resolved")

	if s.bus != nil {
		s.bus.Publish(TopicConflictResolved, domain.NotificationPayload{
			Subject:   "Sync conflict resolved",
			Message:   fmt.Sprintf("Conflict on item %s resolved with %s.", conflict.ItemID, resolution),
			Event:     domain.NotificationEventConflictResolved,
			AccountID: accountID,
			Timestamp: now,
		})
	}

	return conflict, nil
}
