package database

import (
	"context"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func NewConflictRepo(log logger.Logger, db *DB) domain.ConflictRepo {
	return &ConflictRepo{
		log: log.With().Str("repo", "conflict").Logger(),
		db:  db,
	}
}

type ConflictRepo struct {
	log zerolog.Logger
	db  *DB
}

func (r *ConflictRepo) Store(ctx context.Context, conflict *domain.SyncConflict) error {
	if result := r.db.Get().WithContext(ctx).Create(conflict); result.Error != nil {
		r.log.Error().Err(result.Error).Str("itemID", conflict.ItemID).Msg("Failed to store conflict")
		return errors.Wrap(result.Error, "failed to store conflict")
	}

	r.log.Debug().Str("itemID", conflict.ItemID).Str("type", string(conflict.ConflictType)).Msg("Conflict stored")
	return nil
}

func (r *ConflictRepo) FindByID(ctx context.Context, id string) (*domain.SyncConflict, error) {
	var conflict domain.SyncConflict
	result := r.db.Get().WithContext(ctx).
		Where("id = ?", id).
		First(&conflict)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("conflictID", id).Msg("Failed to find conflict")
		return nil, errors.Wrap(result.Error, "failed to find conflict")
	}

	return &conflict, nil
}

func (r *ConflictRepo) FindPending(ctx context.Context, accountID string) ([]domain.SyncConflict, error) {
	var conflicts []domain.SyncConflict

	result := r.db.Get().WithContext(ctx).
		Where("account_id = ? AND resolution IS NULL", accountID).
		Order("created_at asc").
		Find(&conflicts)

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("accountID", accountID).Msg("Failed to fetch pending conflicts")
		return nil, errors.Wrap(result.Error, "failed to fetch pending conflicts")
	}

	return conflicts, nil
}

func (r *ConflictRepo) Update(ctx context.Context, conflict *domain.SyncConflict) error {
	result := r.db.Get().WithContext(ctx).
		Model(&domain.SyncConflict{}).
		Where("id = ?", conflict.ID).
		Updates(map[string]interface{}{
			"resolution":  conflict.Resolution,
			"resolved_at": conflict.ResolvedAt,
		})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("conflictID", conflict.ID).Msg("Failed to update conflict")
		return errors.Wrap(result.Error, "failed to update conflict")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(domain.ErrNotFound, "conflict not found for update")
	}

	return nil
}

// DeleteResolvedOlderThan prunes resolved conflicts past the cutoff. The
// resolution IS NOT NULL guard keeps pending conflicts alive regardless of
// age.
func (r *ConflictRepo) DeleteResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.Get().WithContext(ctx).
		Where("resolution IS NOT NULL AND resolved_at < ?", cutoff).
		Delete(&domain.SyncConflict{})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Time("cutoff", cutoff).Msg("Failed to prune resolved conflicts")
		return 0, errors.Wrap(result.Error, "failed to prune resolved conflicts")
	}

	return result.RowsAffected, nil
}
