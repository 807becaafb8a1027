package domain

import (
	"context"
	"time"
)

type ChangeRepo interface {
	// StoreWithCursor allocates the next cursor for the change's account and
	// persists the change in the same transaction. The returned change
	// carries the allocated cursor. Concurrent calls for one account never
	// receive the same cursor.
	StoreWithCursor(ctx context.Context, change *Change) error
	// FindSince returns changes with cursor strictly greater than the given
	// cursor, ordered by cursor ascending, bounded by limit.
	FindSince(ctx context.Context, accountID string, cursor int64, limit int, includeDeleted bool) ([]Change, error)
	// FindLatestByItem returns the most recently recorded change for an item,
	// or nil when the item has no history. Must be read-after-write
	// consistent with StoreWithCursor.
	FindLatestByItem(ctx context.Context, accountID string, itemID string) (*Change, error)
	// CurrentCursor reads the highest cursor issued for the account, 0 when
	// nothing was ever recorded.
	CurrentCursor(ctx context.Context, accountID string) (int64, error)
	// DeleteOlderThan removes changes recorded before the cutoff and returns
	// the number of rows deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ChangeType string

const (
	ChangeTypeCreate ChangeType = "CREATE"
	ChangeTypeModify ChangeType = "MODIFY"
	ChangeTypeDelete ChangeType = "DELETE"
	ChangeTypeMove   ChangeType = "MOVE"
)

// Change is one immutable entry of the per-account change log. Cursors are
// strictly increasing per account, never reused and never decremented; gaps
// are allowed, duplicates are not.
type Change struct {
	ID         string            `json:"id" gorm:"primaryKey;column:id"`
	ItemID     string            `json:"item_id" gorm:"column:item_id;index"`
	ChangeType ChangeType        `json:"change_type" gorm:"column:change_type"`
	AccountID  string            `json:"account_id" gorm:"column:account_id;index:idx_change_account_cursor,unique"`
	DeviceID   string            `json:"device_id,omitempty" gorm:"column:device_id"`
	Timestamp  time.Time         `json:"timestamp" gorm:"column:timestamp;index"`
	Cursor     int64             `json:"cursor" gorm:"column:cursor;index:idx_change_account_cursor,unique"`
	OldPath    string            `json:"old_path,omitempty" gorm:"column:old_path"`
	NewPath    string            `json:"new_path,omitempty" gorm:"column:new_path"`
	Checksum   string            `json:"checksum,omitempty" gorm:"column:checksum"`
	Metadata   map[string]string `json:"metadata,omitempty" gorm:"column:metadata;type:text;serializer:json"`
}

func (Change) TableName() string {
	return "sync_changes"
}

// SyncCursor holds the highest cursor issued per account. Allocation is an
// optimistic compare-and-swap on this row.
type SyncCursor struct {
	AccountID string    `gorm:"primaryKey;column:account_id"`
	Cursor    int64     `gorm:"column:cursor"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SyncCursor) TableName() string {
	return "sync_cursors"
}

// RecordChangeRequest is a client-reported mutation before it is stamped with
// a cursor and committed to the log.
type RecordChangeRequest struct {
	ItemID     string            `json:"item_id"`
	ChangeType ChangeType        `json:"change_type"`
	DeviceID   string            `json:"device_id,omitempty"`
	OldPath    string            `json:"old_path,omitempty"`
	NewPath    string            `json:"new_path,omitempty"`
	Checksum   string            `json:"checksum,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
