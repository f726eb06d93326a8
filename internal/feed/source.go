package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// DirSource serves the three input feeds from files in a directory:
// articles, inventory and sales, each as .csv or .xlsx with a tenant column.
// Files are parsed once on first use.
type DirSource struct {
	dir string

	once      sync.Once
	err       error
	articles  []domain.ArticleMaster
	snapshots []domain.InventorySnapshot
	sales     []domain.SaleEvent
	rejected  int
}

// NewDirSource creates a source over the feed directory dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) load() error {
	s.once.Do(func() {
		s.err = s.readAll()
	})
	return s.err
}

func (s *DirSource) readAll() error {
	log := logger.Log.With().Str("feed_dir", s.dir).Logger()

	read := func(name string) (*table, error) {
		path, err := findTable(s.dir, name)
		if err != nil {
			return nil, err
		}
		return readTable(path)
	}
	report := func(rejected []rowError) {
		for _, r := range rejected {
			event := log.Warn().Err(r)
			if isInvalidQuantity(r) {
				event = event.Bool("invalid_quantity", true)
			}
			event.Msg("rejecting feed row")
		}
		s.rejected += len(rejected)
	}

	t, err := read(ArticlesFile)
	if err != nil {
		return err
	}
	articles, rejected, err := parseArticles(t)
	if err != nil {
		return err
	}
	report(rejected)

	if t, err = read(InventoryFile); err != nil {
		return err
	}
	snapshots, rejected, err := parseSnapshots(t)
	if err != nil {
		return err
	}
	report(rejected)

	if t, err = read(SalesFile); err != nil {
		return err
	}
	sales, rejected, err := parseSales(t)
	if err != nil {
		return err
	}
	report(rejected)

	s.articles, s.snapshots, s.sales = articles, snapshots, sales
	log.Info().
		Int("articles", len(articles)).
		Int("snapshots", len(snapshots)).
		Int("sales", len(sales)).
		Int("rejected", s.rejected).
		Msg("feed loaded")
	return nil
}

// Rejected returns the number of feed rows dropped at parse time.
func (s *DirSource) Rejected() int {
	return s.rejected
}

// ListTenants returns every tenant that has article master data.
func (s *DirSource) ListTenants(_ context.Context) ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var tenants []string
	for _, a := range s.articles {
		if !seen[a.TenantID] {
			seen[a.TenantID] = true
			tenants = append(tenants, a.TenantID)
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

// LoadArticles implements replenishment.Source.
func (s *DirSource) LoadArticles(ctx context.Context, tenantID string) ([]domain.ArticleMaster, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	var out []domain.ArticleMaster
	for _, a := range s.articles {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, ctx.Err()
}

// LoadSnapshots implements replenishment.Source. An empty warehouseID returns
// every warehouse of the tenant.
func (s *DirSource) LoadSnapshots(ctx context.Context, tenantID, warehouseID string) ([]domain.InventorySnapshot, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	var out []domain.InventorySnapshot
	for _, snap := range s.snapshots {
		if snap.TenantID == tenantID && (warehouseID == "" || snap.WarehouseID == warehouseID) {
			out = append(out, snap)
		}
	}
	return out, ctx.Err()
}

// LoadSales implements replenishment.Source. The range covers whole days,
// both ends included.
func (s *DirSource) LoadSales(ctx context.Context, tenantID string, from, to time.Time) ([]domain.SaleEvent, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid sales range %s..%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	lo := from.Format(time.DateOnly)
	hi := to.Format(time.DateOnly)

	var out []domain.SaleEvent
	for _, e := range s.sales {
		if e.TenantID != tenantID {
			continue
		}
		if d := e.SaleDate.Format(time.DateOnly); d < lo || d > hi {
			continue
		}
		out = append(out, e)
	}
	return out, ctx.Err()
}
