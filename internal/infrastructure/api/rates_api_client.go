package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the exchangeratesapi.io v1 endpoint
	DefaultBaseURL = "http://api.exchangeratesapi.io/v1"

	latestPath = "/latest"
)

// Fetcher performs a single logical request against the rate source
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// RatesAPIClient implements the RateSource interface against an
// exchangeratesapi.io-compatible service
type RatesAPIClient struct {
	baseURL string
	apiKey  string
	fetcher Fetcher
	logger  logger.Logger
}

// NewRatesAPIClient creates a new rate source client
func NewRatesAPIClient(baseURL, apiKey string, fetcher Fetcher, log logger.Logger) *RatesAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RatesAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		fetcher: fetcher,
		logger:  log,
	}
}

// LatestURL returns the request target for the latest rates
func (c *RatesAPIClient) LatestURL() string {
	return c.withKey(c.baseURL + latestPath)
}

// HistoricalURL returns the request target for the rates of one day
func (c *RatesAPIClient) HistoricalURL(date time.Time) string {
	return c.withKey(c.baseURL + "/" + entity.FormatDate(date))
}

func (c *RatesAPIClient) withKey(target string) string {
	if c.apiKey == "" {
		return target
	}
	return target + "?access_key=" + url.QueryEscape(c.apiKey)
}

// FetchLatest retrieves the most recent rates
func (c *RatesAPIClient) FetchLatest(ctx context.Context) (entity.RateSnapshot, error) {
	resp, err := c.fetcher.Fetch(ctx, c.LatestURL())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest rates: %w", err)
	}

	snapshot, err := parseRates(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("latest rates: %w", err)
	}

	return snapshot, nil
}

// FetchForDate retrieves the rates for one calendar day
func (c *RatesAPIClient) FetchForDate(ctx context.Context, date time.Time) (entity.RateSnapshot, error) {
	day := entity.FormatDate(date)

	resp, err := c.fetcher.Fetch(ctx, c.HistoricalURL(date))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %s: %w", day, err)
	}

	snapshot, err := parseRates(resp.Body)
	if err != nil {
		c.logger.Debug("Rate source returned no usable data", map[string]interface{}{
			"date":  day,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("rates for %s: %w", day, err)
	}

	return snapshot, nil
}

// parseRates extracts the rates object of a payload. A success flag of false,
// a malformed document or an empty rates object all mean "no data".
func parseRates(body []byte) (entity.RateSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed payload", entity.ErrNoDataForDate)
	}

	doc := gjson.ParseBytes(body)
	if !doc.Get("success").Bool() {
		if info := doc.Get("error.info"); info.Exists() {
			return nil, fmt.Errorf("%w: %s", entity.ErrNoDataForDate, info.String())
		}
		return nil, fmt.Errorf("%w: success=false", entity.ErrNoDataForDate)
	}

	rates := doc.Get("rates")
	if !rates.IsObject() {
		return nil, fmt.Errorf("%w: missing rates", entity.ErrNoDataForDate)
	}

	snapshot := make(entity.RateSnapshot)
	rates.ForEach(func(code, value gjson.Result) bool {
		if value.Type == gjson.Number {
			snapshot[code.String()] = value.Float()
		}
		return true
	})

	if len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: empty rates", entity.ErrNoDataForDate)
	}

	return snapshot, nil
}

// redactURL hides the access key before a URL reaches the logs
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("access_key") {
		q.Set("access_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
