package domain

import (
	"context"
	"io"
)

// VersionReader is the port to the storage subsystem for reading the bytes of
// a specific stored file version. The returned reader yields the full version
// content from offset zero.
type VersionReader interface {
	OpenVersion(ctx context.Context, accountID string, itemID string, versionNumber int64) (io.ReadCloser, error)
}

// BlockChecksum is the checksum pair of one fixed-size block: a cheap rolling
// hash for candidate matching plus a strong digest to confirm.
type BlockChecksum struct {
	Index      int    `json:"index"`
	Size       int    `json:"size"`
	WeakHash   uint32 `json:"weak_hash"`
	StrongHash string `json:"strong_hash"`
}

// FileSignature is the block-checksum signature of one stored file version,
// used by delta-transfer clients to request only differing blocks. It is a
// derived artifact and not part of the change log.
type FileSignature struct {
	ItemID        string          `json:"item_id"`
	VersionNumber int64           `json:"version_number"`
	BlockSize     int             `json:"block_size"`
	TotalSize     int64           `json:"total_size"`
	Blocks        []BlockChecksum `json:"blocks"`
}
