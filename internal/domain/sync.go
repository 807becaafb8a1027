package domain

import "time"

// SyncRequest is the pull envelope a device sends. Cursor 0 (or absent) means
// "from the beginning"; Limit 0 falls back to the configured page size.
type SyncRequest struct {
	DeviceID       string `json:"device_id"`
	Cursor         int64  `json:"cursor,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// SyncResponse is the pull result. Cursor is the account's current high-water
// mark, not the last returned change; HasMore is a full-page heuristic, so
// callers keep pulling until a short page comes back.
type SyncResponse struct {
	Changes    []Change       `json:"changes"`
	Cursor     int64          `json:"cursor"`
	HasMore    bool           `json:"has_more"`
	Conflicts  []SyncConflict `json:"conflicts"`
	ServerTime time.Time      `json:"server_time"`
}

// PushRequest is the push envelope: a batch of client changes applied in
// order. Application is not atomic across the batch; changes recorded before
// a failure stand (at-least-once semantics).
type PushRequest struct {
	DeviceID string                `json:"device_id"`
	Changes  []RecordChangeRequest `json:"changes"`
}

// PushResponse carries the conflicts detected while applying a push. Changes
// that cleared conflict detection were recorded and are not echoed back.
type PushResponse struct {
	Conflicts []SyncConflict `json:"conflicts"`
}

// ResolveConflictRequest is the explicit resolution decision for one pending
// conflict.
type ResolveConflictRequest struct {
	Resolution ConflictResolution `json:"resolution"`
}
