package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/tib-ai/triage/pkg/catalog"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/records"
)

// Store is the read side of the record store.
type Store interface {
	ListDiseases(ctx context.Context) ([]records.Disease, error)
	ListSeverities(ctx context.Context) ([]records.Severity, error)
	CountBySeverity(ctx context.Context, diseaseID *uint) ([]records.LevelCount, error)
	LocationSeverities(ctx context.Context) ([]records.LocationSeverity, error)
	DiseaseLocations(ctx context.Context, diseaseID uint) (int64, []records.LocationCount, error)
	DiseaseLocationMatrix(ctx context.Context) ([]records.DiseaseLocationCount, error)
	StatsSnapshot(ctx context.Context) (*records.StatsSnapshot, error)
}

type Service struct {
	store   Store
	catalog *catalog.Catalog
	cache   Cache
	opts    StatsOptions
}

// NewService wires the report views. cache may be nil.
func NewService(store Store, cat *catalog.Catalog, cache Cache, opts StatsOptions) *Service {
	return &Service{store: store, catalog: cat, cache: cache, opts: opts}
}

func cached[T any](ctx context.Context, s *Service, key string, compute func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		var hit T
		ok, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("report cache read failed")
		} else if ok {
			return hit, nil
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value); err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("report cache write failed")
		}
	}
	return value, nil
}

// Invalidate drops cached reports after the record set changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) checkDisease(id uint) error {
	if _, err := s.catalog.Disease(id); err != nil {
		if errors.Is(err, catalog.ErrUnknownDisease) {
			return fmt.Errorf("disease %d: %w", id, records.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Service) Diseases(ctx context.Context) ([]records.Disease, error) {
	return s.store.ListDiseases(ctx)
}

func (s *Service) Severities(ctx context.Context) ([]records.Severity, error) {
	return s.store.ListSeverities(ctx)
}

// SeverityBreakdown counts diagnoses per severity level, for one disease
// when diseaseID is set.
func (s *Service) SeverityBreakdown(ctx context.Context, diseaseID *uint) ([]SeverityBucket, error) {
	key := "triage"
	if diseaseID != nil {
		if err := s.checkDisease(*diseaseID); err != nil {
			return nil, err
		}
		key = fmt.Sprintf("triage:%d", *diseaseID)
	}
	return cached(ctx, s, key, func(ctx context.Context) ([]SeverityBucket, error) {
		counts, err := s.store.CountBySeverity(ctx, diseaseID)
		if err != nil {
			return nil, fmt.Errorf("counting by severity: %w", err)
		}
		return SeverityBreakdown(s.catalog.Severities, counts), nil
	})
}

func (s *Service) RegionOverview(ctx context.Context) (map[string]RegionSummary, error) {
	return cached(ctx, s, "regions", func(ctx context.Context) (map[string]RegionSummary, error) {
		rows, err := s.store.LocationSeverities(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading location severities: %w", err)
		}
		return RegionOverview(s.catalog, rows), nil
	})
}

func (s *Service) RegionForDisease(ctx context.Context, diseaseID uint) (DiseaseRegions, error) {
	if err := s.checkDisease(diseaseID); err != nil {
		return DiseaseRegions{}, err
	}
	return cached(ctx, s, fmt.Sprintf("disease-location:%d", diseaseID), func(ctx context.Context) (DiseaseRegions, error) {
		total, rows, err := s.store.DiseaseLocations(ctx, diseaseID)
		if err != nil {
			return DiseaseRegions{}, fmt.Errorf("reading disease locations: %w", err)
		}
		return RegionsForDisease(total, rows), nil
	})
}

func (s *Service) DiseaseLocations(ctx context.Context) (map[string]map[string]int64, error) {
	return cached(ctx, s, "disease-location", func(ctx context.Context) (map[string]map[string]int64, error) {
		rows, err := s.store.DiseaseLocationMatrix(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading disease location matrix: %w", err)
		}
		return DiseaseLocations(rows), nil
	})
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return cached(ctx, s, "stats", func(ctx context.Context) (Stats, error) {
		snap, err := s.store.StatsSnapshot(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("reading stats snapshot: %w", err)
		}
		return BuildStats(snap, s.opts), nil
	})
}
