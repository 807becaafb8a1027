package domain

import (
	"context"
	"time"
)

type ConflictRepo interface {
	Store(ctx context.Context, conflict *SyncConflict) error
	FindByID(ctx context.Context, id string) (*SyncConflict, error)
	FindPending(ctx context.Context, accountID string) ([]SyncConflict, error)
	Update(ctx context.Context, conflict *SyncConflict) error
	// DeleteResolvedOlderThan removes conflicts resolved before the cutoff
	// and returns the number of rows deleted. Pending conflicts are never
	// touched.
	DeleteResolvedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ConflictType string

const (
	// ConflictTypeEdit: both sides modified the item.
	ConflictTypeEdit ConflictType = "EDIT_CONFLICT"
	// ConflictTypeEditDelete: incoming modify against a recorded delete.
	ConflictTypeEditDelete ConflictType = "EDIT_DELETE"
	// ConflictTypeDeleteEdit: incoming delete against a recorded modify.
	ConflictTypeDeleteEdit ConflictType = "DELETE_EDIT"
)

type ConflictResolution string

const (
	ResolutionKeepLocal  ConflictResolution = "KEEP_LOCAL"
	ResolutionKeepRemote ConflictResolution = "KEEP_REMOTE"
	ResolutionKeepBoth   ConflictResolution = "KEEP_BOTH"
)

// SyncConflict pairs an incoming change that could not be committed with the
// recorded change it collided with. LocalChange is the pushing device's side,
// synthesized with cursor 0 since it was never allocated one; RemoteChange is
// the change already in the log.
type SyncConflict struct {
	ID           string              `json:"id" gorm:"primaryKey;column:id"`
	AccountID    string              `json:"account_id" gorm:"column:account_id;index"`
	ItemID       string              `json:"item_id" gorm:"column:item_id;index"`
	ConflictType ConflictType        `json:"conflict_type" gorm:"column:conflict_type"`
	LocalChange  Change              `json:"local_change" gorm:"column:local_change;type:text;serializer:json"`
	RemoteChange Change              `json:"remote_change" gorm:"column:remote_change;type:text;serializer:json"`
	Resolution   *ConflictResolution `json:"resolution,omitempty" gorm:"column:resolution"`
	ResolvedAt   *time.Time          `json:"resolved_at,omitempty" gorm:"column:resolved_at;index"`
	CreatedAt    time.Time           `json:"created_at" gorm:"column:created_at;autoCreateTime;index"`
}

func (SyncConflict) TableName() string {
	return "sync_conflicts"
}

// IsPending reports whether the conflict still awaits a resolution decision.
func (c *SyncConflict) IsPending() bool {
	return c.Resolution == nil
}

// ValidResolution reports whether r is one of the known resolution choices.
func ValidResolution(r ConflictResolution) bool {
	switch r {
	case ResolutionKeepLocal, ResolutionKeepRemote, ResolutionKeepBoth:
		return true
	}
	return false
}
