package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// LookupCache caches the public read surface in Redis as JSON blobs and
// falls back to the live service on cache miss. Only found results are
// cached: a miss on the live service (nil view) is returned as-is, so a
// student whose results publish seconds later is not pinned to a stale
// not-found for a whole TTL.
type LookupCache struct {
	client *redis.Client
	inner  app.PublicLookup
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

var _ app.PublicLookup = (*LookupCache)(nil)

func NewLookupCache(client *redis.Client, inner app.PublicLookup, ttl time.Duration) *LookupCache {
	return &LookupCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LookupCache) SearchByRollNumber(ctx context.Context, rollNumber string) (*domain.ResultView, error) {
	key := "lookup:roll:" + rollNumber
	var cached domain.ResultView
	if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached domain.ResultView
		if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
		view, err := c.inner.SearchByRollNumber(ctx, rollNumber)
		if err != nil {
			return nil, err
		}
		if view != nil {
			c.store(ctx, key, view)
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ResultView), nil
}

func (c *LookupCache) SearchByBoardRegID(ctx context.Context, boardRegID string) ([]domain.ResultView, error) {
	key := "lookup:reg:" + boardRegID
	var cached []domain.ResultView
	if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached []domain.ResultView
		if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
		views, err := c.inner.SearchByBoardRegID(ctx, boardRegID)
		if err != nil {
			return nil, err
		}
		// nil (unknown student) is not cached; an empty slice for a known
		// student is, since the distinction is part of the contract.
		if views != nil {
			c.store(ctx, key, views)
		}
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ResultView), nil
}

func (c *LookupCache) VerifyResult(ctx context.Context, verificationCode string) (*domain.ResultVerification, error) {
	key := "lookup:verify:" + verificationCode
	var cached domain.ResultVerification
	if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached domain.ResultVerification
		if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
		res, err := c.inner.VerifyResult(ctx, verificationCode)
		if err != nil {
			return nil, err
		}
		if res != nil {
			c.store(ctx, key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ResultVerification), nil
}

func (c *LookupCache) VerifyCertificate(ctx context.Context, certificateID string) (*domain.CertificateVerification, error) {
	key := "lookup:cert:" + certificateID
	var cached domain.CertificateVerification
	if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached domain.CertificateVerification
		if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
		res, err := c.inner.VerifyCertificate(ctx, certificateID)
		if err != nil {
			return nil, err
		}
		// Revocation must show promptly, so only intact certificates are
		// cached for the full TTL.
		if res != nil && !res.IsRevoked {
			c.store(ctx, key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CertificateVerification), nil
}

func (c *LookupCache) Stats(ctx context.Context) (domain.PublicStats, error) {
	key := "lookup:stats"
	var cached domain.PublicStats
	if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached domain.PublicStats
		if ok, err := c.fetch(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
		stats, err := c.inner.Stats(ctx)
		if err != nil {
			return domain.PublicStats{}, err
		}
		c.store(ctx, key, stats)
		return stats, nil
	})
	if err != nil {
		return domain.PublicStats{}, err
	}
	return v.(domain.PublicStats), nil
}

// Invalidate drops the cached entries for a published session's students.
// It is best effort; missing keys are fine.
func (c *LookupCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = "lookup:" + k
	}
	_ = c.client.Del(ctx, full...).Err()
}

func (c *LookupCache) fetch(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *LookupCache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

func (c *LookupCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
