package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/watanabekazunori/tonarino/pkg/google"
	"github.com/watanabekazunori/tonarino/pkg/google/mocks"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCache_DetailsHitAfterMiss(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := mocks.NewMockClient(t)
	m.On("Details", mock.Anything, "p1").Return(&google.DetailsResponse{
		Status: "OK",
		Result: google.PlaceDetails{
			Name:             "一蘭 渋谷店",
			Rating:           4.1,
			UserRatingsTotal: 3200,
			Reviews:          []google.Review{{Rating: 5, Text: "うまい"}},
		},
	}, nil).Once()

	c := NewCache(m, rdb, time.Hour)

	first, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	second, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "うまい", second.Result.Reviews[0].Text)
	assert.True(t, mr.Exists(detailsKey("p1", nil)))
	assert.Equal(t, time.Hour, mr.TTL(detailsKey("p1", nil)))
}

func TestCache_FieldsPartitionKeys(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := mocks.NewMockClient(t)
	m.On("Details", mock.Anything, "p1").Return(&google.DetailsResponse{Result: google.PlaceDetails{Name: "full"}}, nil).Once()
	m.On("Details", mock.Anything, "p1", "rating", "user_ratings_total").
		Return(&google.DetailsResponse{Result: google.PlaceDetails{Rating: 3.9}}, nil).Once()

	c := NewCache(m, rdb, time.Minute)

	full, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	partial, err := c.Details(context.Background(), "p1", "rating", "user_ratings_total")
	require.NoError(t, err)

	assert.Equal(t, "full", full.Result.Name)
	assert.InDelta(t, 3.9, partial.Result.Rating, 1e-9)
}

func TestCache_ExpiredEntryRefetches(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := mocks.NewMockClient(t)
	m.On("Details", mock.Anything, "p1").Return(&google.DetailsResponse{}, nil).Twice()

	c := NewCache(m, rdb, time.Minute)

	_, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.Details(context.Background(), "p1")
	require.NoError(t, err)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := mocks.NewMockClient(t)
	m.On("Details", mock.Anything, "p1").Return(nil, errors.New("boom")).Once()

	c := NewCache(m, rdb, time.Minute)
	_, err := c.Details(context.Background(), "p1")

	assert.Error(t, err)
	assert.False(t, mr.Exists(detailsKey("p1", nil)))
}

func TestCache_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	m := mocks.NewMockClient(t)
	m.On("Details", mock.Anything, "p1").Return(&google.DetailsResponse{Result: google.PlaceDetails{Name: "x"}}, nil).Once()

	c := NewCache(m, rdb, time.Minute)
	resp, err := c.Details(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "x", resp.Result.Name)
}

func TestCache_SearchesNotCached(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := mocks.NewMockClient(t)
	m.On("TextSearch", mock.Anything, "q").Return(&google.SearchResponse{}, nil).Twice()

	c := NewCache(m, rdb, time.Minute)
	_, _ = c.TextSearch(context.Background(), "q")
	_, _ = c.TextSearch(context.Background(), "q")
}
