package retention

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

// EventBus topics published by the retention service.
const (
	TopicRetentionSwept = "sync:retention_swept"
)

type Service interface {
	// PruneOldData deletes changes and resolved conflicts older than the
	// horizon and returns the combined deleted count. Pending conflicts are
	// never pruned regardless of age. Safe to run concurrently with live
	// sync traffic and idempotent: deleting already-gone rows is a no-op.
	PruneOldData(ctx context.Context, olderThanDays int) (int64, error)
}

func NewService(log logger.Logger, changeRepo domain.ChangeRepo, conflictRepo domain.ConflictRepo, bus EventBus.Bus) Service {
	return &service{
		log:          log.With().Str("module", "retention").Logger(),
		changeRepo:   changeRepo,
		conflictRepo: conflictRepo,
		bus:          bus,
	}
}

type service struct {
	log          zerolog.Logger
	changeRepo   domain.ChangeRepo
	conflictRepo domain.ConflictRepo
	bus          EventBus.Bus
}

func (s *service) PruneOldData(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, errors.Wrapf(domain.ErrInvalidOperation, "invalid retention horizon %d days", olderThanDays)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	prunedChanges, err := s.changeRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	prunedConflicts, err := s.conflictRepo.DeleteResolvedOlderThan(ctx, cutoff)
	if err != nil {
		// changes already pruned stay pruned; surface the conflict failure
		return prunedChanges, err
	}

	total := prunedChanges + prunedConflicts
	s.log.Info().
		Time("cutoff", cutoff).
		Int64("changes", prunedChanges).
		Int64("resolvedConflicts", prunedConflicts).
		Msg("Retention sweep finished")

	if s.bus != nil && total > 0 {
		s.bus.Publish(TopicRetentionSwept, domain.NotificationPayload{
			Subject:   "Sync history pruned",
			Message:   fmt.Sprintf("Removed %d changes and %d resolved conflicts older than %s.", prunedChanges, prunedConflicts, cutoff.Format(time.RFC3339)),
			Event:     domain.NotificationEventRetentionSwept,
			Timestamp: time.Now().UTC(),
		})
	}

	return total, nil
}
