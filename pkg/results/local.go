package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/procmine/pkg/errors"
)

// LocalBackend stores each report as a JSON file in a directory.
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates a backend using the local filesystem.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to create reports directory").
			WithContext("dir", dir)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) path(id string) string {
	return filepath.Join(b.dir, id+".json")
}

// Save persists a report. The file is written to a temporary name first
// and renamed into place.
func (b *LocalBackend) Save(ctx context.Context, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to marshal report")
	}

	tmp := b.path(r.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to write report").WithContext("id", r.ID)
	}
	if err := os.Rename(tmp, b.path(r.ID)); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to write report").WithContext("id", r.ID)
	}
	return nil
}

// Load retrieves a report from the filesystem.
func (b *LocalBackend) Load(ctx context.Context, id string) (*Report, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ReportNotFound(id)
		}
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to read report").WithContext("id", id)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to unmarshal report").WithContext("id", id)
	}
	return &r, nil
}

// Delete removes a report file.
func (b *LocalBackend) Delete(ctx context.Context, id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to delete report").WithContext("id", id)
	}
	return nil
}

// List returns every readable report in the directory.
func (b *LocalBackend) List(ctx context.Context) ([]*Report, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to list reports")
	}

	var reports []*Report
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		r, err := b.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // Skip unreadable reports
		}
		reports = append(reports, r)
	}
	sortNewestFirst(reports)
	return reports, nil
}

// Name returns "local".
func (b *LocalBackend) Name() string {
	return "local"
}
