// Package geo resolves request IPs to coarse locations via an external
// lookup service, with a Redis cache-aside in front of it. Lookups never
// fail the caller: any error degrades to the Unknown location.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Cache is the cache-aside store keyed by IP.
type Cache interface {
	GetLocation(ctx context.Context, ip string) (*models.Location, bool, error)
	SetLocation(ctx context.Context, ip string, loc *models.Location, ttl time.Duration) error
}

type Locator struct {
	endpoint string
	client   *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewLocator creates a locator against an ip-api style endpoint. The
// timeout bounds each lookup; cache may be nil (lookups go straight out).
func NewLocator(endpoint string, timeout, cacheTTL time.Duration, cache Cache) *Locator {
	return &Locator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// lookupResponse matches the ip-api.com JSON payload.
type lookupResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

// Resolve maps an IP to a location. Private and loopback addresses
// short-circuit to Unknown without an external call; lookup and cache
// failures degrade to Unknown.
func (l *Locator) Resolve(ctx context.Context, ip string) models.Location {
	if IsPrivateIP(ip) {
		return models.UnknownLocation()
	}

	if l.cache != nil {
		cached, ok, err := l.cache.GetLocation(ctx, ip)
		if err != nil {
			l.logger.Warn("Location cache read failed", zap.String("ip", ip), zap.Error(err))
		} else if ok {
			util.GeoCacheHitsTotal.Inc()
			return *cached
		}
		util.GeoCacheMissesTotal.Inc()
	}

	loc, err := l.lookup(ctx, ip)
	if err != nil {
		l.logger.Warn("Geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return models.UnknownLocation()
	}

	if l.cache != nil {
		if err := l.cache.SetLocation(ctx, ip, &loc, l.cacheTTL); err != nil {
			l.logger.Warn("Location cache write failed", zap.String("ip", ip), zap.Error(err))
		}
	}
	return loc
}

func (l *Locator) lookup(ctx context.Context, ip string) (models.Location, error) {
	start := time.Now()
	defer func() {
		util.GeoLookupLatency.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", l.endpoint, ip), nil)
	if err != nil {
		return models.Location{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return models.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if body.Status != "success" {
		return models.Location{}, fmt.Errorf("lookup failed for %s", ip)
	}

	return models.Location{
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Region:      body.RegionName,
		City:        body.City,
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		Timezone:    body.Timezone,
	}, nil
}

// IsPrivateIP reports whether an address should skip the external lookup.
func IsPrivateIP(ip string) bool {
	if ip == "" || ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}
