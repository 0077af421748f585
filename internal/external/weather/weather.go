// Package weather reads 3-hourly forecasts from the 7Timer civil product.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// Step is the spacing of the dataseries.
const Step = 3 * time.Hour

const initLayout = "2006010215"

type Point struct {
	Timepoint  int    `json:"timepoint"` // hours after Init
	CloudCover int    `json:"cloudcover"`
	PrecType   string `json:"prec_type"`
	PrecAmount int    `json:"prec_amount"`
	WindSpeed  int    `json:"wind_speed"` // 7Timer wind class, 1..8
	Weather    string `json:"weather"`
	Humidity   string `json:"humidity"`
	Temp       int    `json:"temp"`
}

type Forecast struct {
	Init   time.Time `json:"init"`
	Series []Point   `json:"dataseries"`
}

type civilResponse struct {
	Product    string `json:"product"`
	Init       string `json:"init"`
	Dataseries []struct {
		Timepoint  int    `json:"timepoint"`
		CloudCover int    `json:"cloudcover"`
		PrecType   string `json:"prec_type"`
		PrecAmount int    `json:"prec_amount"`
		Temp2m     int    `json:"temp2m"`
		RH2m       string `json:"rh2m"`
		Wind10m    struct {
			Direction string `json:"direction"`
			Speed     int    `json:"speed"`
		} `json:"wind10m"`
		Weather string `json:"weather"`
	} `json:"dataseries"`
}

type Client struct {
	endpoint string
	client   *http.Client
	logger   *logger.Logger
}

func NewClient(endpoint string, client *http.Client, log *logger.Logger) *Client {
	return &Client{endpoint: endpoint, client: client, logger: log}
}

// Forecast fetches the forecast for a coordinate. Failures are wrapped with
// models.ErrUpstream.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("ac", "0")
	q.Set("unit", "metric")
	q.Set("output", "json")
	q.Set("tzshift", "0")

	endpoint := c.endpoint + "?" + q.Encode()
	c.logger.Debug("WEATHER", fmt.Sprintf("Fetching forecast: %s", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create weather request: %v", models.ErrUpstream, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.LogUpstream("WEATHER", fmt.Sprintf("request failed: %v", err))
		return nil, fmt.Errorf("%w: weather service error: %v", models.ErrUpstream, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("WEATHER", fmt.Sprintf("Failed to close weather response body: %v", err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.LogUpstream("WEATHER", fmt.Sprintf("service returned status: %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: weather service returned status: %d", models.ErrUpstream, resp.StatusCode)
	}

	var raw civilResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode weather response: %v", models.ErrUpstream, err)
	}
	return parse(raw)
}

func parse(raw civilResponse) (*Forecast, error) {
	start, err := time.ParseInLocation(initLayout, raw.Init, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad forecast init %q", models.ErrUpstream, raw.Init)
	}
	if len(raw.Dataseries) == 0 {
		return nil, fmt.Errorf("%w: empty forecast dataseries", models.ErrUpstream)
	}

	f := &Forecast{Init: start, Series: make([]Point, 0, len(raw.Dataseries))}
	for _, d := range raw.Dataseries {
		f.Series = append(f.Series, Point{
			Timepoint:  d.Timepoint,
			CloudCover: d.CloudCover,
			PrecType:   d.PrecType,
			PrecAmount: d.PrecAmount,
			WindSpeed:  d.Wind10m.Speed,
			Weather:    d.Weather,
			Humidity:   d.RH2m,
			Temp:       d.Temp2m,
		})
	}
	return f, nil
}

var windClasses = map[int]string{
	1: "calm (below 0.3 m/s)",
	2: "light (0.3-3.4 m/s)",
	3: "moderate (3.4-8.0 m/s)",
	4: "fresh (8.0-10.8 m/s)",
	5: "strong (10.8-17.2 m/s)",
	6: "gale (17.2-24.5 m/s)",
	7: "storm (24.5-32.6 m/s)",
	8: "hurricane (over 32.6 m/s)",
}

// WindDescription names a 7Timer wind class.
func WindDescription(class int) string {
	if s, ok := windClasses[class]; ok {
		return s
	}
	return "unknown"
}

var weatherKinds = map[string]string{
	"clear":     "clear",
	"pcloudy":   "partly cloudy",
	"mcloudy":   "cloudy",
	"cloudy":    "very cloudy",
	"humid":     "foggy",
	"lightrain": "light rain",
	"oshower":   "occasional showers",
	"ishower":   "isolated showers",
	"lightsnow": "light snow",
	"rain":      "rain",
	"snow":      "snow",
	"rainsnow":  "rain and snow",
	"ts":        "thunderstorm possible",
	"tsrain":    "thunderstorm",
}

// WeatherDescription names a 7Timer weather code such as "pcloudyday".
func WeatherDescription(code string) string {
	kind := strings.TrimSuffix(strings.TrimSuffix(code, "day"), "night")
	if s, ok := weatherKinds[kind]; ok {
		return s
	}
	return code
}
