package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	domrepo "FinFolio/internal/domain/repository"
	applogger "FinFolio/pkg/logger"
	"FinFolio/pkg/util"
)

const (
	ReportFile     = "portfolio_report.md"
	AllocationFile = "portfolio_allocation.json"
	MetricsFile    = "portfolio_metrics.json"
)

// FileArtifactStore writes each run into its own directory under baseDir.
type FileArtifactStore struct {
	baseDir string
	l       *applogger.Logger
}

func NewFileArtifactStore(baseDir string, l *applogger.Logger) *FileArtifactStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileArtifactStore{baseDir: baseDir, l: l}
}

// Save returns the run directory. Failed runs only get the report.
func (s *FileArtifactStore) Save(ctx context.Context, res *domrepo.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := util.DirStamp(res.StartedAt)
	if id := res.RunID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		name += "_" + id
	}
	dir := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ReportFile), []byte(res.Report), 0o644); err != nil {
		return dir, fmt.Errorf("write report: %w", err)
	}
	if res.Failed {
		s.l.Info("saved error report", applogger.String("dir", dir))
		return dir, nil
	}

	if len(res.Allocation) > 0 {
		if err := writeJSON(filepath.Join(dir, AllocationFile), res.Allocation); err != nil {
			return dir, fmt.Errorf("write allocation: %w", err)
		}
	}
	if res.Metrics != nil {
		if err := writeJSON(filepath.Join(dir, MetricsFile), res.Metrics); err != nil {
			return dir, fmt.Errorf("write metrics: %w", err)
		}
	}
	s.l.Info("saved run artifacts", applogger.String("dir", dir))
	return dir, nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

var _ domrepo.ArtifactStore = (*FileArtifactStore)(nil)
