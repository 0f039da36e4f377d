package upload

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Cleaner removes upload artifacts left behind by interrupted requests.
type Cleaner struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewCleaner(dir string, logger *zap.SugaredLogger) *Cleaner {
	return &Cleaner{dir: dir, logger: logger}
}

// Clean deletes regular files in the upload dir older than ttl and returns
// how many were removed.
func (c *Cleaner) Clean(ttl time.Duration) int {
	if ttl <= 0 || c.dir == "" {
		return 0
	}

	deadline := time.Now().Add(-ttl)

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		c.logger.Warnw("failed to read upload dir", "dir", c.dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			c.logger.Warnw("failed to stat upload", "name", e.Name(), "error", statErr)
			continue
		}
		if !fi.ModTime().Before(deadline) {
			continue
		}
		full := filepath.Join(c.dir, e.Name())
		if err := os.Remove(full); err != nil {
			c.logger.Warnw("failed to remove stale upload", "path", full, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Infow("removed stale uploads", "dir", c.dir, "removed", removed, "before", deadline.Format(time.RFC3339))
	}
	return removed
}
