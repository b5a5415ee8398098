package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// ReferenceCache caches reference-data reads (students, schools, subjects,
// academic years) in front of a slower loader, typically the Postgres one.
// The aggregation loop resolves the same subjects once per student, so this
// collapses the hot path to a handful of loads per publication run.
// Counting queries pass through uncached.
type ReferenceCache struct {
	inner app.ReferenceRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedRef
}

type cachedRef struct {
	value     any
	expiresAt time.Time
}

var _ app.ReferenceRepository = (*ReferenceCache)(nil)

func NewReferenceCache(inner app.ReferenceRepository, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedRef),
	}
}

func (c *ReferenceCache) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	v, err := c.get(ctx, "student:"+id, func() (any, error) {
		return c.inner.GetStudent(ctx, id)
	})
	if err != nil {
		return domain.Student{}, err
	}
	return v.(domain.Student), nil
}

func (c *ReferenceCache) GetStudentByBoardRegID(ctx context.Context, boardRegID string) (domain.Student, error) {
	v, err := c.get(ctx, "student-reg:"+boardRegID, func() (any, error) {
		return c.inner.GetStudentByBoardRegID(ctx, boardRegID)
	})
	if err != nil {
		return domain.Student{}, err
	}
	return v.(domain.Student), nil
}

func (c *ReferenceCache) GetSchool(ctx context.Context, id string) (domain.School, error) {
	v, err := c.get(ctx, "school:"+id, func() (any, error) {
		return c.inner.GetSchool(ctx, id)
	})
	if err != nil {
		return domain.School{}, err
	}
	return v.(domain.School), nil
}

func (c *ReferenceCache) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	v, err := c.get(ctx, "subject:"+id, func() (any, error) {
		return c.inner.GetSubject(ctx, id)
	})
	if err != nil {
		return domain.Subject{}, err
	}
	return v.(domain.Subject), nil
}

func (c *ReferenceCache) GetAcademicYear(ctx context.Context, id string) (domain.AcademicYear, error) {
	v, err := c.get(ctx, "year:"+id, func() (any, error) {
		return c.inner.GetAcademicYear(ctx, id)
	})
	if err != nil {
		return domain.AcademicYear{}, err
	}
	return v.(domain.AcademicYear), nil
}

func (c *ReferenceCache) CountActiveSchools(ctx context.Context) (int, error) {
	return c.inner.CountActiveSchools(ctx)
}

func (c *ReferenceCache) ActiveStudentCounts(ctx context.Context) (male, female, total int, err error) {
	return c.inner.ActiveStudentCounts(ctx)
}

func (c *ReferenceCache) get(_ context.Context, key string, load func() (any, error)) (any, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.value, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.value, nil
		}
		c.mu.RUnlock()

		value, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = cachedRef{value: value, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *ReferenceCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
