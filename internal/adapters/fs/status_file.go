package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/frameship/internal/domain"
)

const statusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved report from disk.
// Returns an empty report and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.StatusReport, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusReport{}, nil
		}
		return domain.StatusReport{}, err
	}

	var report domain.StatusReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.StatusReport{}, err
	}

	return report, nil
}

// Save persists the report atomically.
// Readers polling the file never observe a partial write.
func (r *StatusFileRepository) Save(ctx context.Context, report domain.StatusReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
