package places

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/metrics"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

const cacheKeyPrefix = "tonarino:places:details:"

// Cache decorates a google.Client, storing Details responses in redis.
// Searches are not cached. Redis failures fall through to the wrapped client.
type Cache struct {
	next google.Client
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewCache wraps next with a details cache.
func NewCache(next google.Client, rdb redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

// NearbySearch implements google.Client.
func (c *Cache) NearbySearch(ctx context.Context, req google.NearbySearchRequest) (*google.SearchResponse, error) {
	return c.next.NearbySearch(ctx, req)
}

// TextSearch implements google.Client.
func (c *Cache) TextSearch(ctx context.Context, query string) (*google.SearchResponse, error) {
	return c.next.TextSearch(ctx, query)
}

// Details implements google.Client.
func (c *Cache) Details(ctx context.Context, placeID string, fields ...string) (*google.DetailsResponse, error) {
	key := detailsKey(placeID, fields)
	log := zap.L().With(zap.String("place_id", placeID))

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached google.DetailsResponse
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			metrics.PlacesRequests.WithLabelValues("details", metrics.OutcomeCached).Inc()
			return &cached, nil
		}
		log.Warn("places: discarding corrupt cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn("places: cache read failed", zap.Error(err))
	}

	resp, err := c.next.Details(ctx, placeID, fields...)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(resp); jerr == nil {
		if serr := c.rdb.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			log.Warn("places: cache write failed", zap.Error(serr))
		}
	}
	return resp, nil
}

func detailsKey(placeID string, fields []string) string {
	if len(fields) == 0 {
		fields = google.DetailsFields
	}
	return cacheKeyPrefix + placeID + ":" + strings.Join(fields, ",")
}
