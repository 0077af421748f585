// Package holiday looks up public holidays from a Nager.Date compatible API.
package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// Cache is satisfied by redis.JSONCache.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type Client struct {
	baseURL string
	client  *http.Client
	cache   Cache
	logger  *logger.Logger
}

// NewClient builds a holiday client. cache may be nil.
func NewClient(baseURL string, client *http.Client, cache Cache, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache,
		logger:  log,
	}
}

// nagerHoliday is one element of /api/v3/PublicHolidays/{year}/{country}.
type nagerHoliday struct {
	Date      string `json:"date"`
	LocalName string `json:"localName"`
	Name      string `json:"name"`
}

// PublicHolidays returns the holidays of country in year. Failures are
// wrapped with models.ErrUpstream.
func (c *Client) PublicHolidays(ctx context.Context, year int, country string) ([]Holiday, error) {
	key := fmt.Sprintf("%s:%d", strings.ToUpper(country), year)

	if c.cache != nil {
		var cached []Holiday
		ok, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.Warn("HOLIDAY", fmt.Sprintf("cache read failed for %s: %v", key, err))
		} else if ok {
			return cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, strings.ToUpper(country))
	c.logger.Debug("HOLIDAY", fmt.Sprintf("Fetching holidays: %s", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create holiday request: %v", models.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.LogUpstream("HOLIDAY", fmt.Sprintf("request failed: %v", err))
		return nil, fmt.Errorf("%w: holiday service error: %v", models.ErrUpstream, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("HOLIDAY", fmt.Sprintf("Failed to close holiday response body: %v", err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.LogUpstream("HOLIDAY", fmt.Sprintf("service returned status: %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: holiday service returned status: %d", models.ErrUpstream, resp.StatusCode)
	}

	var raw []nagerHoliday
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode holiday response: %v", models.ErrUpstream, err)
	}

	holidays := make([]Holiday, 0, len(raw))
	for _, h := range raw {
		name := h.Name
		if name == "" {
			name = h.LocalName
		}
		holidays = append(holidays, Holiday{Date: h.Date, Name: name})
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, holidays); err != nil {
			c.logger.Warn("HOLIDAY", fmt.Sprintf("cache write failed for %s: %v", key, err))
		}
	}
	return holidays, nil
}

// Match returns the name of the holiday falling on date, if any.
func Match(holidays []Holiday, date string) (string, bool) {
	for _, h := range holidays {
		if h.Date == date {
			return h.Name, true
		}
	}
	return "", false
}
