// Package geocode resolves free-text addresses to coordinates with the Yandex geocoder.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/glebk/pizza-bot/internal/domain"
)

// Client talks to the geocoding API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new Client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// Resolve turns user input into coordinates.
// Input of the form "lat, lon" is parsed directly; anything else is geocoded.
// A nil result without error means nothing matched.
func (c *Client) Resolve(ctx context.Context, text string) (*domain.Coordinates, error) {
	if pos, ok := ParseCoordinates(text); ok {
		return &pos, nil
	}
	return c.Lookup(ctx, text)
}

// Lookup geocodes an address and returns the most relevant match
func (c *Client) Lookup(ctx context.Context, address string) (*domain.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	q := url.Values{
		"geocode": {address},
		"apikey":  {c.apiKey},
		"format":  {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	members := body.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return nil, nil
	}

	// The geocoder ranks matches; the first one is the most relevant.
	pos, err := parsePos(members[0].GeoObject.Point.Pos)
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// parsePos parses the geocoder's "lon lat" point notation
func parsePos(pos string) (domain.Coordinates, error) {
	fields := strings.Fields(pos)
	if len(fields) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode: malformed point %q", pos)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode: malformed longitude %q: %w", fields[0], err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode: malformed latitude %q: %w", fields[1], err)
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}

var coordsPattern = regexp.MustCompile(`^\s*(-?\d{1,2}(?:\.\d+)?)\s*[,;\s]\s*(-?\d{1,3}(?:\.\d+)?)\s*$`)

// ParseCoordinates recognises raw "lat, lon" input
func ParseCoordinates(text string) (domain.Coordinates, bool) {
	m := coordsPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.Coordinates{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, true
}
