package service

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedDoctors fronts a doctor.Repository with an expiring LRU for lookups by
// id. Searches always go to the repository. A size of zero disables caching.
type CachedDoctors struct {
	repo    doctor.Repository
	cache   *expirable.LRU[string, *doctor.Doctor]
	metrics *metrics.Collector
}

func NewCachedDoctors(repo doctor.Repository, size int, ttl time.Duration, collector *metrics.Collector) *CachedDoctors {
	c := &CachedDoctors{repo: repo, metrics: collector}
	if size > 0 {
		c.cache = expirable.NewLRU[string, *doctor.Doctor](size, nil, ttl)
	}
	return c
}

func (c *CachedDoctors) GetByID(ctx context.Context, id string) (*doctor.Doctor, error) {
	if c.cache != nil {
		if d, ok := c.cache.Get(id); ok {
			c.metrics.DoctorCacheLookups.WithLabelValues("hit").Inc()
			cp := *d
			return &cp, nil
		}
		c.metrics.DoctorCacheLookups.WithLabelValues("miss").Inc()
	}

	d, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		cp := *d
		c.cache.Add(id, &cp)
	}
	return d, nil
}

func (c *CachedDoctors) List(ctx context.Context, q doctor.SearchQuery) ([]*doctor.Doctor, error) {
	return c.repo.List(ctx, q)
}

func (c *CachedDoctors) Upsert(ctx context.Context, d *doctor.Doctor) error {
	if err := c.repo.Upsert(ctx, d); err != nil {
		return err
	}
	c.Invalidate(d.ID)
	return nil
}

func (c *CachedDoctors) Invalidate(id string) {
	if c.cache != nil {
		c.cache.Remove(id)
	}
}
