package database

import (
	"context"
	"strings"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// errCursorRace marks a lost compare-and-swap on the cursor row. It never
// leaves StoreWithCursor; the allocation loop retries on it.
var errCursorRace = errors.Sentinel("cursor allocation race")

// retryableContention reports whether a transaction failed on transient
// writer contention rather than a real storage fault. sqlite surfaces
// SQLITE_BUSY as "database is locked" when two writers collide on the file
// lock, and postgres aborts one of two conflicting transactions with
// SQLSTATE 40001 (serialization_failure). A fresh transaction can win in
// both cases, so the allocation loop treats them like a lost swap.
func retryableContention(err error) bool {
	if err == nil {
		return false
	}

	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) && stateErr.SQLState() == "40001" {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func NewChangeRepo(log logger.Logger, db *DB, cursorRetries int) domain.ChangeRepo {
	if cursorRetries <= 0 {
		cursorRetries = 5
	}
	return &ChangeRepo{
		log:           log.With().Str("repo", "change").Logger(),
		db:            db,
		cursorRetries: cursorRetries,
	}
}

type ChangeRepo struct {
	log           zerolog.Logger
	db            *DB
	cursorRetries int
}

// StoreWithCursor allocates cursor = current + 1 for the change's account and
// inserts the change, both inside one transaction. The allocation is an
// optimistic compare-and-swap on the account's sync_cursors row: losing the
// swap rolls the transaction back and retries, so two concurrent calls for
// one account can never commit the same cursor value.
func (r *ChangeRepo) StoreWithCursor(ctx context.Context, change *domain.Change) error {
	for attempt := 0; attempt < r.cursorRetries; attempt++ {
		err := r.db.Get().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var current domain.SyncCursor
			result := tx.Where("account_id = ?", change.AccountID).First(&current)
			if result.Error != nil {
				if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return errors.Wrap(result.Error, "failed to read cursor")
				}
				// First change for this account. The primary key on
				// account_id turns a concurrent first-insert into a
				// retryable race.
				current = domain.SyncCursor{AccountID: change.AccountID, Cursor: 0}
				if createErr := tx.Create(&current).Error; createErr != nil {
					return errCursorRace.Wrap(createErr)
				}
			}

			next := current.Cursor + 1
			swap := tx.Model(&domain.SyncCursor{}).
				Where("account_id = ? AND cursor = ?", change.AccountID, current.Cursor).
				Update("cursor", next)
			if swap.Error != nil {
				return errors.Wrap(swap.Error, "failed to advance cursor")
			}
			if swap.RowsAffected == 0 {
				return errCursorRace
			}

			change.Cursor = next
			if insertErr := tx.Create(change).Error; insertErr != nil {
				return errors.Wrap(insertErr, "failed to insert change")
			}
			return nil
		})

		if err == nil {
			r.log.Trace().Str("accountID", change.AccountID).Int64("cursor", change.Cursor).Msg("Change recorded")
			return nil
		}
		if errors.Is(err, errCursorRace) || retryableContention(err) {
			r.log.Debug().Str("accountID", change.AccountID).Int("attempt", attempt+1).Msg("Cursor allocation race, retrying")
			continue
		}

		r.log.Error().Err(err).Str("accountID", change.AccountID).Msg("Failed to record change")
		return errors.Wrap(err, "failed to record change")
	}

	return errors.Wrapf(domain.ErrStorage, "cursor allocation lost %d races", r.cursorRetries)
}

// FindSince returns changes with cursor strictly greater than the given one,
// in increasing cursor order.
func (r *ChangeRepo) FindSince(ctx context.Context, accountID string, cursor int64, limit int, includeDeleted bool) ([]domain.Change, error) {
	var changes []domain.Change

	query := r.db.Get().WithContext(ctx).
		Where("account_id = ? AND cursor > ?", accountID, cursor).
		Order("cursor asc")
	if !includeDeleted {
		query = query.Where("change_type <> ?", domain.ChangeTypeDelete)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if result := query.Find(&changes); result.Error != nil {
		r.log.Error().Err(result.Error).Str("accountID", accountID).Msg("Failed to fetch changes")
		return nil, errors.Wrap(result.Error, "failed to fetch changes")
	}

	return changes, nil
}

// FindLatestByItem returns the most recently recorded change for an item.
// Changes are committed in cursor order, so the highest cursor is the most
// recent and is read-after-write consistent with StoreWithCursor.
func (r *ChangeRepo) FindLatestByItem(ctx context.Context, accountID string, itemID string) (*domain.Change, error) {
	var change domain.Change
	result := r.db.Get().WithContext(ctx).
		Where("account_id = ? AND item_id = ?", accountID, itemID).
		Order("cursor desc").
		First(&change)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("itemID", itemID).Msg("Failed to fetch latest change")
		return nil, errors.Wrap(result.Error, "failed to fetch latest change")
	}

	return &change, nil
}

func (r *ChangeRepo) CurrentCursor(ctx context.Context, accountID string) (int64, error) {
	var current domain.SyncCursor
	result := r.db.Get().WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&current)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		r.log.Error().Err(result.Error).Str("accountID", accountID).Msg("Failed to read current cursor")
		return 0, errors.Wrap(result.Error, "failed to read current cursor")
	}

	return current.Cursor, nil
}

func (r *ChangeRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.Get().WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&domain.Change{})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Time("cutoff", cutoff).Msg("Failed to prune changes")
		return 0, errors.Wrap(result.Error, "failed to prune changes")
	}

	return result.RowsAffected, nil
}
