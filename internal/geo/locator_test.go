package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"", "localhost", "not-an-ip",
		"127.0.0.1", "::1",
		"10.0.0.5", "172.16.1.1", "192.168.1.1",
		"169.254.0.1", "0.0.0.0",
	}
	for _, ip := range private {
		assert.True(t, IsPrivateIP(ip), "%q should be private", ip)
	}

	public := []string{"8.8.8.8", "1.1.1.1", "2606:4700:4700::1111"}
	for _, ip := range public {
		assert.False(t, IsPrivateIP(ip), "%q should be public", ip)
	}
}

type memoryCache struct {
	entries map[string]models.Location
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]models.Location)}
}

func (m *memoryCache) GetLocation(_ context.Context, ip string) (*models.Location, bool, error) {
	loc, ok := m.entries[ip]
	if !ok {
		return nil, false, nil
	}
	return &loc, true, nil
}

func (m *memoryCache) SetLocation(_ context.Context, ip string, loc *models.Location, _ time.Duration) error {
	m.entries[ip] = *loc
	m.sets++
	return nil
}

func TestResolvePrivateIPSkipsLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("lookup must not be called for private IPs")
	}))
	defer srv.Close()

	locator := NewLocator(srv.URL, time.Second, time.Hour, nil)

	loc := locator.Resolve(context.Background(), "192.168.0.10")
	assert.Equal(t, models.UnknownLocation(), loc)
}

func TestResolveLookupAndCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"country": "Indonesia",
			"countryCode": "ID",
			"regionName": "Jakarta",
			"city": "Jakarta",
			"lat": -6.2,
			"lon": 106.8,
			"timezone": "Asia/Jakarta"
		}`))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	locator := NewLocator(srv.URL, time.Second, time.Hour, cache)

	loc := locator.Resolve(context.Background(), "8.8.8.8")
	require.Equal(t, "Indonesia", loc.Country)
	assert.Equal(t, "ID", loc.CountryCode)
	assert.Equal(t, "Jakarta", loc.City)
	assert.Equal(t, 1, cache.sets)

	// Second resolve hits the cache, not the server.
	loc = locator.Resolve(context.Background(), "8.8.8.8")
	assert.Equal(t, "Indonesia", loc.Country)
	assert.Equal(t, 1, calls)
}

func TestResolveLookupFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "fail", "message": "reserved range"}`))
	}))
	defer srv.Close()

	locator := NewLocator(srv.URL, time.Second, time.Hour, nil)

	loc := locator.Resolve(context.Background(), "8.8.8.8")
	assert.Equal(t, models.UnknownLocation(), loc)
}

func TestResolveServerErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := newMemoryCache()
	locator := NewLocator(srv.URL, time.Second, time.Hour, cache)

	loc := locator.Resolve(context.Background(), "8.8.8.8")
	assert.Equal(t, models.UnknownLocation(), loc)
	assert.Zero(t, cache.sets, "failed lookups must not be cached")
}
