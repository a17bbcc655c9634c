package snapshot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/OldStager01/joyce/pkg/models"
)

// FileLocator finds original series among snapshot files left by an earlier run.
type FileLocator struct {
	dir string
}

func NewFileLocator(dir string) *FileLocator {
	return &FileLocator{dir: dir}
}

// Locate globs <host>_*_<metric>_original.csv and expects exactly one match.
func (l *FileLocator) Locate(ctx context.Context, hostname, metric string) (*models.Series, error) {
	pattern := filepath.Join(l.dir, fmt.Sprintf("%s_*_%s_%s%s", hostname, metric, models.SourceOriginal, extension))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob snapshots: %w", err)
	}

	// a shorter hostname can match files of a longer one sharing its prefix
	var found []string
	for _, m := range matches {
		key, err := ParseFileName(m)
		if err != nil || key.Hostname != hostname || key.Metric != metric {
			continue
		}
		found = append(found, m)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s %s", ErrSnapshotMissing, hostname, metric)
	case 1:
		return Read(found[0])
	default:
		return nil, fmt.Errorf("%w: %s %s matches %d files", ErrSnapshotAmbiguous, hostname, metric, len(found))
	}
}
