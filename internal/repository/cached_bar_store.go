package repository

import (
	"context"
	"errors"
	"time"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	"ORBLab/pkg/cache"
	applogger "ORBLab/pkg/logger"
)

// CachedBarStore caches session bar snapshots in front of another BarStore.
// A snapshot is immutable once cached, so re-runs within the TTL see the same bars.
type CachedBarStore struct {
	next  domrepo.BarStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.BarStore = (*CachedBarStore)(nil)

func NewCachedBarStore(next domrepo.BarStore, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedBarStore {
	return &CachedBarStore{next: next, cache: c, ttl: ttl, l: l}
}

func (s *CachedBarStore) Bars(ctx context.Context, instrument string, from, to time.Time) ([]models.Bar, error) {
	key := cache.Key("bars", instrument, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var bars []models.Bar
	err := s.cache.Get(ctx, key, &bars)
	if err == nil {
		for i := range bars {
			bars[i].Time = bars[i].Time.In(from.Location())
		}
		return bars, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("bar cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	bars, err = s.next.Bars(ctx, instrument, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil {
		s.l.Warn("bar cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return bars, nil
}
