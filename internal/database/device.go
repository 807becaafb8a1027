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

func NewDeviceRepo(log logger.Logger, db *DB) domain.DeviceRepo {
	return &DeviceRepo{
		log: log.With().Str("repo", "device").Logger(),
		db:  db,
	}
}

type DeviceRepo struct {
	log zerolog.Logger
	db  *DB
}

// FindByDeviceID looks a device up by (accountID, deviceID). A missing row is
// not an error; the caller decides whether absence is exceptional.
func (r *DeviceRepo) FindByDeviceID(ctx context.Context, accountID string, deviceID string) (*domain.SyncDevice, error) {
	var device domain.SyncDevice
	result := r.db.Get().WithContext(ctx).
		Where("account_id = ? AND device_id = ?", accountID, deviceID).
		First(&device)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("deviceID", deviceID).Msg("Failed to find device")
		return nil, errors.Wrap(result.Error, "failed to find device")
	}

	return &device, nil
}

// ExistsByDeviceID probes for the device id across all accounts.
func (r *DeviceRepo) ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	result := r.db.Get().WithContext(ctx).
		Model(&domain.SyncDevice{}).
		Where("device_id = ?", deviceID).
		Count(&count)

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("deviceID", deviceID).Msg("Failed to probe device id")
		return false, errors.Wrap(result.Error, "failed to probe device id")
	}

	return count > 0, nil
}

func (r *DeviceRepo) List(ctx context.Context, accountID string, activeOnly bool) ([]domain.SyncDevice, error) {
	var devices []domain.SyncDevice

	query := r.db.Get().WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at asc")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if result := query.Find(&devices); result.Error != nil {
		r.log.Error().Err(result.Error).Msg("Failed to list devices")
		return nil, errors.Wrap(result.Error, "failed to list devices")
	}

	return devices, nil
}

func (r *DeviceRepo) Store(ctx context.Context, device *domain.SyncDevice) error {
	if result := r.db.Get().WithContext(ctx).Create(device); result.Error != nil {
		r.log.Error().Err(result.Error).Str("deviceID", device.DeviceID).Msg("Failed to store device")
		return errors.Wrap(result.Error, "failed to store device")
	}

	r.log.Debug().Str("deviceID", device.DeviceID).Msg("Device stored")
	return nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *domain.SyncDevice) error {
	result := r.db.Get().WithContext(ctx).
		Model(&domain.SyncDevice{}).
		Where("account_id = ? AND device_id = ?", device.AccountID, device.DeviceID).
		Updates(map[string]interface{}{
			"device_name": device.DeviceName,
			"device_type": device.DeviceType,
			"is_active":   device.IsActive,
			"updated_at":  time.Now().UTC(),
		})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("deviceID", device.DeviceID).Msg("Failed to update device")
		return errors.Wrap(result.Error, "failed to update device")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(domain.ErrNotFound, "device not found for update")
	}

	return nil
}

// UpdateSyncBookmark stamps the device's last pull position.
func (r *DeviceRepo) UpdateSyncBookmark(ctx context.Context, accountID string, deviceID string, cursor int64, syncedAt time.Time) error {
	result := r.db.Get().WithContext(ctx).
		Model(&domain.SyncDevice{}).
		Where("account_id = ? AND device_id = ?", accountID, deviceID).
		Updates(map[string]interface{}{
			"last_sync_at":     syncedAt,
			"last_sync_cursor": cursor,
			"updated_at":       syncedAt,
		})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("deviceID", deviceID).Msg("Failed to update sync bookmark")
		return errors.Wrap(result.Error, "failed to update sync bookmark")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(domain.ErrNotFound, "device not found for bookmark update")
	}

	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, accountID string, deviceID string) error {
	result := r.db.Get().WithContext(ctx).
		Where("account_id = ? AND device_id = ?", accountID, deviceID).
		Delete(&domain.SyncDevice{})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("deviceID", deviceID).Msg("Failed to delete device")
		return errors.Wrap(result.Error, "failed to delete device")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(domain.ErrNotFound, "device not found for delete")
	}

	r.log.Debug().Str("deviceID", deviceID).Msg("Device deleted")
	return nil
}
