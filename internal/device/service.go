package device

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

// EventBus topics published by the device service.
const (
	TopicDeviceRegistered = "sync:device_registered"
)

type Service interface {
	// Register creates the device on first sight and reactivates/renames it
	// on any later call with the same (account, device) pair. It never errors
	// on re-registration.
	Register(ctx context.Context, accountID string, req domain.RegisterDeviceRequest) (*domain.SyncDevice, error)
	List(ctx context.Context, accountID string, activeOnly bool) ([]domain.SyncDevice, error)
	// Deactivate flips isActive off; sync state is kept.
	Deactivate(ctx context.Context, accountID string, deviceID string) error
	// Remove deletes the device row and its sync bookmarks.
	Remove(ctx context.Context, accountID string, deviceID string) error
}

func NewService(log logger.Logger, repo domain.DeviceRepo, bus EventBus.Bus) Service {
	return &service{
		log:  log.With().Str("module", "device").Logger(),
		repo: repo,
		bus:  bus,
	}
}

type service struct {
	log  zerolog.Logger
	repo domain.DeviceRepo
	bus  EventBus.Bus
}

func (s *service) Register(ctx context.Context, accountID string, req domain.RegisterDeviceRequest) (*domain.SyncDevice, error) {
	if req.DeviceID == "" {
		return nil, errors.Wrap(domain.ErrInvalidOperation, "device id must not be empty")
	}

	existing, err := s.repo.FindByDeviceID(ctx, accountID, req.DeviceID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.DeviceName = req.DeviceName
		if req.DeviceType != "" {
			existing.DeviceType = req.DeviceType
		}
		existing.IsActive = true
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}

		s.log.Debug().Str("accountID", accountID).Str("deviceID", req.DeviceID).Msg("Device re-registered")
		return existing, nil
	}

	deviceType := req.DeviceType
	if deviceType == "" {
		deviceType = domain.DeviceTypeOther
	}

	now := time.Now().UTC()
	device := &domain.SyncDevice{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		DeviceType: deviceType,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Store(ctx, device); err != nil {
		return nil, err
	}

	s.log.Info().Str("accountID", accountID).Str("deviceID", req.DeviceID).Msg("Device registered")

	if s.bus != nil {
		s.bus.Publish(TopicDeviceRegistered, domain.NotificationPayload{
			Subject:   "New sync device registered",
			Message:   fmt.Sprintf("Device %q (%s) joined the account.", req.DeviceName, deviceType),
			Event:     domain.NotificationEventDeviceRegistered,
			AccountID: accountID,
			Timestamp: now,
		})
	}

	return device, nil
}

func (s *service) List(ctx context.Context, accountID string, activeOnly bool) ([]domain.SyncDevice, error) {
	return s.repo.List(ctx, accountID, activeOnly)
}

func (s *service) Deactivate(ctx context.Context, accountID string, deviceID string) error {
	device, err := s.resolveOwned(ctx, accountID, deviceID)
	if err != nil {
		return err
	}

	device.IsActive = false
	if err := s.repo.Update(ctx, device); err != nil {
		return err
	}

	s.log.Info().Str("accountID", accountID).Str("deviceID", deviceID).Msg("Device deactivated")
	return nil
}

func (s *service) Remove(ctx context.Context, accountID string, deviceID string) error {
	if _, err := s.resolveOwned(ctx, accountID, deviceID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, accountID, deviceID); err != nil {
		return err
	}

	s.log.Info().Str("accountID", accountID).Str("deviceID", deviceID).Msg("Device removed")
	return nil
}

// resolveOwned returns the account's device, ErrNotFound when nobody owns the
// id, and ErrAuthorization when the id exists under another account. The
// lookup is account-scoped already; the ownership probe is defense in depth.
func (s *service) resolveOwned(ctx context.Context, accountID string, deviceID string) (*domain.SyncDevice, error) {
	device, err := s.repo.FindByDeviceID(ctx, accountID, deviceID)
	if err != nil {
		return nil, err
	}
	if device != nil {
		return device, nil
	}

	exists, err := s.repo.ExistsByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(domain.ErrAuthorization, "device %s belongs to another account", deviceID)
	}

	return nil, errors.Wrapf(domain.ErrNotFound, "device %s not registered", deviceID)
}
