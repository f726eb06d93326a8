package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline/replenishment"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

var _ replenishment.Publisher = (*Publisher)(nil)

// Publisher writes partition outputs as files under
// <dir>/<tenant>/<as-of>[/<warehouse>] and optionally mirrors them to object
// storage under the same relative path.
type Publisher struct {
	dir    string
	store  storage.ObjectStorage
	prefix string
}

// NewPublisher creates a file publisher. store may be nil.
func NewPublisher(dir string, store storage.ObjectStorage, prefix string) *Publisher {
	return &Publisher{dir: dir, store: store, prefix: prefix}
}

// PartitionDir returns the directory a partition's files are published to.
func (p *Publisher) PartitionDir(out *replenishment.Output) string {
	return filepath.Join(p.dir, p.relDir(out))
}

func (p *Publisher) relDir(out *replenishment.Output) string {
	rel := filepath.Join(out.TenantID, out.AsOf.Format(time.DateOnly))
	if out.WarehouseID != "" {
		rel = filepath.Join(rel, out.WarehouseID)
	}
	return rel
}

// Publish implements replenishment.Publisher. Files are staged in a temporary
// directory and swapped in with renames, so a failed publish leaves the
// previous export in place.
func (p *Publisher) Publish(ctx context.Context, out *replenishment.Output) error {
	target := p.PartitionDir(out)
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return err
	}

	files, err := writeFiles(staging, out)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := swapDir(staging, target); err != nil {
		return err
	}

	log := logger.ForComponent("export").With().Str("tenant_id", out.TenantID).Str("dir", target).Logger()
	log.Info().Int("files", len(files)).Msg("export written")

	if p.store == nil {
		return nil
	}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(target, name))
		if err != nil {
			return err
		}
		key := path.Join(p.prefix, filepath.ToSlash(p.relDir(out)), name)
		if err := p.store.UploadObject(ctx, key, data); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	log.Info().Int("files", len(files)).Msg("export uploaded")
	return nil
}

func writeFiles(dir string, out *replenishment.Output) ([]string, error) {
	rollups := make([]domain.RollupSummary, 0, len(out.WarehouseRollups)+len(out.CategoryRollups))
	for _, r := range out.WarehouseRollups {
		rollups = append(rollups, r)
	}
	for _, r := range out.CategoryRollups {
		rollups = append(rollups, r)
	}

	tables := []struct {
		name    string
		header  []string
		records func(yield func([]string) error) error
	}{
		{StatusFile, statusHeader, func(yield func([]string) error) error {
			for _, s := range out.Statuses {
				if err := yield(statusRecord(s)); err != nil {
					return err
				}
			}
			return nil
		}},
		{RecommendationFile, recommendationHeader, func(yield func([]string) error) error {
			for _, r := range out.Recommendations {
				if err := yield(recommendationRecord(r)); err != nil {
					return err
				}
			}
			return nil
		}},
		{ForecastFile, forecastHeader, func(yield func([]string) error) error {
			for _, f := range out.Forecasts {
				if err := yield(forecastRecord(f)); err != nil {
					return err
				}
			}
			return nil
		}},
		{RollupFile, rollupHeader(), func(yield func([]string) error) error {
			for _, r := range rollups {
				if err := yield(rollupRecord(r)); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	var written []string
	for _, t := range tables {
		if err := writeCSV(filepath.Join(dir, t.name), t.header, t.records); err != nil {
			return nil, fmt.Errorf("write %s: %w", t.name, err)
		}
		written = append(written, t.name)
	}

	if err := writeWorkbook(filepath.Join(dir, WorkbookFile), out.Recommendations); err != nil {
		return nil, fmt.Errorf("write %s: %w", WorkbookFile, err)
	}
	return append(written, WorkbookFile), nil
}

func writeCSV(path string, header []string, records func(func([]string) error) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := records(w.Write); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// swapDir replaces target with staging. The previous target is moved aside
// first and restored if the final rename fails.
func swapDir(staging, target string) error {
	backup := target + ".previous"
	_ = os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("move previous export aside: %w", err)
		}
		hadPrevious = true
	}

	if err := os.Rename(staging, target); err != nil {
		if hadPrevious {
			_ = os.Rename(backup, target)
		}
		return fmt.Errorf("publish export: %w", err)
	}
	if hadPrevious {
		_ = os.RemoveAll(backup)
	}
	return nil
}
