package database

import (
	"path/filepath"
	"strings"
)

// dataSourceName resolves the sqlite database file location relative to the
// configured config directory. An empty configPath keeps the file in the
// working directory.
func dataSourceName(configPath string, name string) string {
	if configPath != "" {
		return filepath.Join(configPath, name)
	}

	return name
}

// sqliteConnString appends a busy timeout to the sqlite DSN so concurrent
// writers wait for the file lock instead of failing immediately with
// SQLITE_BUSY.
func sqliteConnString(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_busy_timeout=5000"
	}
	return dsn + "?_busy_timeout=5000"
}
