package database

import (
	"context"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type NotificationRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewNotificationRepo(log logger.Logger, db *DB) domain.NotificationRepo {
	return &NotificationRepo{
		log: log.With().Str("repo", "notification").Logger(),
		db:  db,
	}
}

// List retrieves an account's notification channels, ordered by name. An
// empty accountID lists every channel; the sender registry uses that at
// startup.
func (r *NotificationRepo) List(ctx context.Context, accountID string) ([]domain.Notification, error) {
	var notifications []domain.Notification

	query := r.db.Get().WithContext(ctx)
	if accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}

	result := query.Order("name asc").Find(&notifications)

	if result.Error != nil {
		r.log.Error().Err(result.Error).Msg("Failed to list notifications")
		return nil, errors.Wrap(result.Error, "failed to list notifications")
	}

	return notifications, nil
}

// FindByID retrieves a specific notification by its ID.
func (r *NotificationRepo) FindByID(ctx context.Context, id int) (*domain.Notification, error) {
	var notification domain.Notification
	result := r.db.Get().WithContext(ctx).First(&notification, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Int("id", id).Msg("Failed to find notification by ID")
		return nil, errors.Wrap(result.Error, "failed to find notification by ID")
	}

	return &notification, nil
}

func (r *NotificationRepo) Store(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	if result := r.db.Get().WithContext(ctx).Create(&notification); result.Error != nil {
		r.log.Error().Err(result.Error).Msg("Failed to store notification")
		return nil, errors.Wrap(result.Error, "failed to store notification")
	}

	return &notification, nil
}

func (r *NotificationRepo) Update(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	result := r.db.Get().WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", notification.ID).
		Updates(map[string]interface{}{
			"name":    notification.Name,
			"type":    notification.Type,
			"enabled": notification.Enabled,
			"events":  notification.Events,
			"webhook": notification.Webhook,
			"token":   notification.Token,
			"channel": notification.Channel,
		})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Int("id", notification.ID).Msg("Failed to update notification")
		return nil, errors.Wrap(result.Error, "failed to update notification")
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrap(domain.ErrNotFound, "notification not found for update")
	}

	return &notification, nil
}

func (r *NotificationRepo) Delete(ctx context.Context, notificationID int) error {
	result := r.db.Get().WithContext(ctx).
		Where("id = ?", notificationID).
		Delete(&domain.Notification{})

	if result.Error != nil {
		r.log.Error().Err(result.Error).Int("id", notificationID).Msg("Failed to delete notification")
		return errors.Wrap(result.Error, "failed to delete notification")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(domain.ErrNotFound, "notification not found for delete")
	}

	return nil
}
