// Package geocode turns zip codes and street addresses into coordinates
// through a Google-compatible geocoding HTTP API.
//
// Lookups pass through a Redis cache, a token-bucket throttle and a circuit
// breaker, in that order. Misses are cached too, for a shorter period, so a
// bad address in the directory does not cost an upstream call per search.
package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/metrics"
	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultCacheTTL    = 30 * 24 * time.Hour
	defaultMissTTL     = time.Hour
	defaultHTTPTimeout = 8 * time.Second
	cachePrefix        = "geo:v1:"
)

var (
	// ErrNotFound means the geocoder had no result for the input.
	ErrNotFound = errors.New("geocode: no result")
	// ErrUnavailable means the breaker is open or the upstream failed.
	ErrUnavailable = errors.New("geocode: service unavailable")
)

// Geocoder resolves free-form addresses and zip codes.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.GeoPoint, error)
	GeocodeZip(ctx context.Context, zip string) (models.GeoPoint, error)
}

// Config configures a Client. Zero values take defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	RPS        float64 // outbound requests per second
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client is the HTTP Geocoder.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[lookup]
	log      *zap.Logger
}

// lookup is both the breaker's result type and the cached payload.
type lookup struct {
	Found bool    `json:"found"`
	Lat   float64 `json:"lat,omitempty"`
	Lng   float64 `json:"lng,omitempty"`
}

// New builds a Client. cache may be nil.
func New(cfg Config, cache Cache, logger *zap.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}

	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}

	const breakerName = "geocoder"
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// A clean "no result" is a successful call.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.BreakerState.WithLabelValues(breakerName).Set(0)

	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		http:     cfg.HTTPClient,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		breaker:  gobreaker.NewCircuitBreaker[lookup](settings),
		log:      logger,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Geocode resolves a free-form address.
func (c *Client) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.GeoPoint{}, ErrNotFound
	}
	return c.resolve(ctx, address, url.Values{"address": {address}})
}

// GeocodeZip resolves a US postal code.
func (c *Client) GeocodeZip(ctx context.Context, zip string) (models.GeoPoint, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return models.GeoPoint{}, ErrNotFound
	}
	return c.resolve(ctx, "zip:"+zip, url.Values{
		"address":    {zip},
		"components": {"postal_code:" + zip + "|country:US"},
	})
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return cachePrefix + hex.EncodeToString(sum[:])
}

func (c *Client) resolve(ctx context.Context, query string, params url.Values) (models.GeoPoint, error) {
	key := cacheKey(query)
	if l, ok := c.fromCache(ctx, key); ok {
		metrics.GeocodeTotal.WithLabelValues("cache_hit").Inc()
		return l.point()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeTotal.WithLabelValues("error").Inc()
		return models.GeoPoint{}, fmt.Errorf("geocode throttle: %w", err)
	}

	l, err := c.breaker.Execute(func() (lookup, error) {
		return c.fetch(ctx, params)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GeocodeTotal.WithLabelValues("rejected").Inc()
		return models.GeoPoint{}, ErrUnavailable
	case errors.Is(err, ErrNotFound):
		metrics.GeocodeTotal.WithLabelValues("not_found").Inc()
		c.toCache(ctx, key, lookup{Found: false}, defaultMissTTL)
		return models.GeoPoint{}, ErrNotFound
	case err != nil:
		metrics.GeocodeTotal.WithLabelValues("error").Inc()
		return models.GeoPoint{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.GeocodeTotal.WithLabelValues("ok").Inc()
	c.toCache(ctx, key, l, c.cacheTTL)
	return l.point()
}

func (l lookup) point() (models.GeoPoint, error) {
	if !l.Found {
		return models.GeoPoint{}, ErrNotFound
	}
	return models.GeoPoint{Lat: l.Lat, Lng: l.Lng}, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (lookup, bool) {
	if c.cache == nil {
		return lookup{}, false
	}
	b, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("geocode cache read failed", zap.Error(err))
		}
		return lookup{}, false
	}
	var l lookup
	if err := json.Unmarshal(b, &l); err != nil {
		return lookup{}, false
	}
	return l, true
}

func (c *Client) toCache(ctx context.Context, key string, l lookup, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	b, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, b, ttl); err != nil {
		c.log.Warn("geocode cache write failed", zap.Error(err))
	}
}

type apiResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// fetch performs one upstream request. ZERO_RESULTS maps to ErrNotFound;
// every other non-OK status and all transport errors count as failures.
func (c *Client) fetch(ctx context.Context, params url.Values) (lookup, error) {
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return lookup{}, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return lookup{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return lookup{}, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return lookup{}, fmt.Errorf("decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return lookup{}, ErrNotFound
	default:
		return lookup{}, fmt.Errorf("geocode status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return lookup{}, ErrNotFound
	}

	loc := body.Results[0].Geometry.Location
	return lookup{Found: true, Lat: loc.Lat, Lng: loc.Lng}, nil
}
