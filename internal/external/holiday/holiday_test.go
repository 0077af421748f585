package holiday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	eventsredis "ms-events/internal/redis"
)

const nagerBody = `[
  {"date":"2024-01-01","localName":"New Year's Day","name":"New Year's Day","countryCode":"AU"},
  {"date":"2024-01-26","localName":"Australia Day","name":"Australia Day","countryCode":"AU"}
]`

func TestPublicHolidays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/PublicHolidays/2024/AU", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nagerBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client(), nil, logger.Discard())
	got, err := c.PublicHolidays(context.Background(), 2024, "au")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Holiday{Date: "2024-01-26", Name: "Australia Day"}, got[1])
}

func TestPublicHolidays_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, logger.Discard())
	_, err := c.PublicHolidays(context.Background(), 2024, "AU")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestPublicHolidays_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"oops":`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, logger.Discard())
	_, err := c.PublicHolidays(context.Background(), 2024, "AU")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestPublicHolidays_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(nagerBody))
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	c := NewClient(srv.URL, client, nil, logger.Discard())
	_, err := c.PublicHolidays(context.Background(), 2024, "AU")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestPublicHolidays_CachedInRedis(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(nagerBody))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := eventsredis.NewJSONCache(rdb, "holidays:", time.Hour)

	c := NewClient(srv.URL, srv.Client(), cache, logger.Discard())
	ctx := context.Background()

	first, err := c.PublicHolidays(ctx, 2024, "AU")
	require.NoError(t, err)
	second, err := c.PublicHolidays(ctx, 2024, "AU")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("holidays:AU:2024"))
}

func TestMatch(t *testing.T) {
	hs := []Holiday{{Date: "2024-01-26", Name: "Australia Day"}}

	name, ok := Match(hs, "2024-01-26")
	assert.True(t, ok)
	assert.Equal(t, "Australia Day", name)

	_, ok = Match(hs, "2024-01-27")
	assert.False(t, ok)
}
