package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/procmine/pkg/analysis"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
)

// Remine re-runs mining for a changed log and writes the model as DOT.
type Remine struct {
	Runner *analysis.Runner

	// Format forces the input format; FormatUnknown detects it per file.
	Format parser.Format

	// OutputDir receives <name>.dot per watched file. Empty means next to
	// the input.
	OutputDir string

	// OnResult is called after each successful run.
	OnResult func(path string, res *analysis.Result)
}

// OutputPath returns the DOT path written for input.
func (m *Remine) OutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".dot"
	dir := m.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base)
}

// Handle mines path and writes its model. It matches Watcher.OnChange.
func (m *Remine) Handle(ctx context.Context, path string) error {
	res, err := m.Runner.Run(ctx, analysis.Source{Path: path, Format: m.Format})
	if err != nil {
		return err
	}

	out := m.OutputPath(path)
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, []byte(res.Model.DOT()), 0644); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write model").
			WithContext("path", out)
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write model").
			WithContext("path", out)
	}

	if m.OnResult != nil {
		m.OnResult(path, res)
	}
	return nil
}
