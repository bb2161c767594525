// internal/workers/study-aid/research-chapter/cache.go
package researchchapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"precision-engine/internal/common/database"
	"precision-engine/internal/common/metrics"
	"precision-engine/internal/pipeline/research"
)

// Cache keeps finished research records in Redis, keyed by subject and chapter.
type Cache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key normalizes case and whitespace so "Money and Banking" and
// " money  and banking" share an entry.
func (c *Cache) Key(subject, chapter string) string {
	return c.prefix + normalize(subject) + ":" + normalize(chapter)
}

// Get returns the cached record, or nil on a miss.
func (c *Cache) Get(ctx context.Context, subject, chapter string) (*research.Result, error) {
	var res research.Result
	err := database.GetJSON(ctx, c.rdb, c.Key(subject, chapter), &res)
	switch {
	case errors.Is(err, database.ErrCacheMiss):
		metrics.ResearchCacheLookups.WithLabelValues("miss").Inc()
		return nil, nil
	case err != nil:
		metrics.ResearchCacheLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ResearchCacheLookups.WithLabelValues("hit").Inc()
	return &res, nil
}

func (c *Cache) Put(ctx context.Context, res *research.Result) error {
	return database.SetJSON(ctx, c.rdb, c.Key(res.Subject, res.ChapterName), res, c.ttl)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
