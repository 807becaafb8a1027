package delta

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/adler32"
	"io"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
)

// DefaultBlockSize is the block size used when a caller passes 0.
const DefaultBlockSize = 4096

type Service interface {
	// GenerateFileSignature reads the stored version in fixed-size blocks and
	// computes a weak rolling checksum plus a strong digest per block. The
	// result is stable across calls for identical bytes; a delta-transfer
	// client uses it to request only the blocks that differ.
	GenerateFileSignature(ctx context.Context, accountID string, itemID string, versionNumber int64, blockSize int) (*domain.FileSignature, error)
}

func NewService(log logger.Logger, versions domain.VersionReader, defaultBlockSize int) Service {
	if defaultBlockSize <= 0 {
		defaultBlockSize = DefaultBlockSize
	}
	return &service{
		log:              log.With().Str("module", "delta").Logger(),
		versions:         versions,
		defaultBlockSize: defaultBlockSize,
	}
}

type service struct {
	log              zerolog.Logger
	versions         domain.VersionReader
	defaultBlockSize int
}

func (s *service) GenerateFileSignature(ctx context.Context, accountID string, itemID string, versionNumber int64, blockSize int) (*domain.FileSignature, error) {
	if blockSize == 0 {
		blockSize = s.defaultBlockSize
	}
	if blockSize < 0 {
		return nil, errors.Wrapf(domain.ErrInvalidOperation, "invalid block size %d", blockSize)
	}

	reader, err := s.versions.OpenVersion(ctx, accountID, itemID, versionNumber)
	if err != nil {
		return nil, err
	}
	defer func(reader io.ReadCloser) {
		if errClose := reader.Close(); errClose != nil {
			s.log.Error().Err(errClose).Str("itemID", itemID).Msg("failed to close version reader")
		}
	}(reader)

	signature := &domain.FileSignature{
		ItemID:        itemID,
		VersionNumber: versionNumber,
		BlockSize:     blockSize,
		Blocks:        make([]domain.BlockChecksum, 0),
	}

	buf := make([]byte, blockSize)
	for index := 0; ; index++ {
		n, readErr := io.ReadFull(reader, buf)
		if n > 0 {
			block := buf[:n]
			strong := sha256.Sum256(block)
			signature.Blocks = append(signature.Blocks, domain.BlockChecksum{
				Index:      index,
				Size:       n,
				WeakHash:   adler32.Checksum(block),
				StrongHash: hex.EncodeToString(strong[:]),
			})
			signature.TotalSize += int64(n)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				break
			}
			s.log.Error().Err(readErr).Str("itemID", itemID).Int64("version", versionNumber).Msg("Failed to read version block")
			return nil, errors.Wrap(readErr, "failed to read version content")
		}
	}

	s.log.Debug().
		Str("itemID", itemID).
		Int64("version", versionNumber).
		Int("blocks", len(signature.Blocks)).
		Int64("totalSize", signature.TotalSize).
		Msg("File signature generated")

	return signature, nil
}
