package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/rs/zerolog"
)

// VersionStore serves stored file version content from the local data
// directory. Layout: <base>/versions/<accountID>/<itemID>/<version>.
type VersionStore struct {
	log  zerolog.Logger
	base string
}

func NewVersionStore(log logger.Logger, baseDir string) *VersionStore {
	return &VersionStore{
		log:  log.With().Str("module", "storage").Logger(),
		base: filepath.Join(baseDir, "versions"),
	}
}

var _ domain.VersionReader = (*VersionStore)(nil)

func (s *VersionStore) OpenVersion(_ context.Context, accountID string, itemID string, versionNumber int64) (io.ReadCloser, error) {
	path, err := s.versionPath(accountID, itemID, versionNumber)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "version %d of item %s not found", versionNumber, itemID)
		}
		s.log.Error().Err(err).Str("path", path).Msg("Failed to open version file")
		return nil, errors.Wrap(err, "failed to open version file")
	}

	return f, nil
}

// WriteVersion stores version content. The upload pipeline lives in the
// platform's storage service; this path exists for local setups and tests.
func (s *VersionStore) WriteVersion(_ context.Context, accountID string, itemID string, versionNumber int64, r io.Reader) error {
	path, err := s.versionPath(accountID, itemID, versionNumber)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create version directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create version file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrap(err, "failed to write version content")
	}

	return nil
}

// versionPath builds <base>/<accountID>/<itemID>/<version>. The account id
// comes from a request header and the item id from the URL, so both must be
// single path components: anything with a separator or ".." could name a
// file outside the account's own version directory.
func (s *VersionStore) versionPath(accountID string, itemID string, versionNumber int64) (string, error) {
	for _, component := range []string{accountID, itemID} {
		if component == "" || component == "." || component == ".." || strings.ContainsAny(component, `/\`) {
			return "", errors.Wrapf(domain.ErrInvalidOperation, "invalid version path component %q", component)
		}
	}

	return filepath.Join(s.base, accountID, itemID, fmt.Sprintf("%d", versionNumber)), nil
}
