package domain

import (
	"context"
	"time"
)

type DeviceRepo interface {
	// FindByDeviceID looks a device up by its client-chosen identifier,
	// scoped to the owning account. Returns nil without error when absent.
	FindByDeviceID(ctx context.Context, accountID string, deviceID string) (*SyncDevice, error)
	// ExistsByDeviceID reports whether any account owns a device with this
	// identifier. Used to tell "not found" apart from "someone else's".
	ExistsByDeviceID(ctx context.Context, deviceID string) (bool, error)
	List(ctx context.Context, accountID string, activeOnly bool) ([]SyncDevice, error)
	Store(ctx context.Context, device *SyncDevice) error
	Update(ctx context.Context, device *SyncDevice) error
	// UpdateSyncBookmark stamps lastSyncAt/lastSyncCursor after a pull.
	UpdateSyncBookmark(ctx context.Context, accountID string, deviceID string, cursor int64, syncedAt time.Time) error
	Delete(ctx context.Context, accountID string, deviceID string) error
}

type DeviceType string

const (
	DeviceTypeDesktopLinux   DeviceType = "DESKTOP_LINUX"
	DeviceTypeDesktopMac     DeviceType = "DESKTOP_MAC"
	DeviceTypeDesktopWindows DeviceType = "DESKTOP_WINDOWS"
	DeviceTypeMobileAndroid  DeviceType = "MOBILE_ANDROID"
	DeviceTypeMobileIOS      DeviceType = "MOBILE_IOS"
	DeviceTypeWeb            DeviceType = "WEB"
	DeviceTypeOther          DeviceType = "OTHER"
)

// SyncDevice is one registered client device of an account. The identity key
// for lookups is (AccountID, DeviceID); ID is only the storage key. At most
// one row exists per (AccountID, DeviceID).
type SyncDevice struct {
	ID             string     `json:"id" gorm:"primaryKey;column:id"`
	AccountID      string     `json:"account_id" gorm:"column:account_id;index:idx_device_account_device,unique"`
	DeviceID       string     `json:"device_id" gorm:"column:device_id;index:idx_device_account_device,unique"`
	DeviceName     string     `json:"device_name" gorm:"column:device_name"`
	DeviceType     DeviceType `json:"device_type" gorm:"column:device_type"`
	IsActive       bool       `json:"is_active" gorm:"column:is_active"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty" gorm:"column:last_sync_at"`
	LastSyncCursor int64      `json:"last_sync_cursor" gorm:"column:last_sync_cursor"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (SyncDevice) TableName() string {
	return "sync_devices"
}

// RegisterDeviceRequest is the registration payload. Registering an already
// known (account, device) pair reactivates and renames instead of creating a
// second row.
type RegisterDeviceRequest struct {
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceType DeviceType `json:"device_type"`
}
