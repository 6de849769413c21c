package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// UserAgent is required by the Nominatim usage policy
	UserAgent = "IncidentFeed/1.0"
	// DefaultMinInterval keeps a margin over Nominatim's one request
	// per second policy
	DefaultMinInterval = 1100 * time.Millisecond
	// DefaultTimeout bounds a single reverse lookup
	DefaultTimeout = 5 * time.Second
)

// Place is the provider-independent result of a reverse lookup.
type Place struct {
	DisplayName string
	Address     AddressParts
}

// AddressParts are the components used to build a display address.
type AddressParts struct {
	Road          string `json:"road"`
	Footway       string `json:"footway"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
}

// Geocoder converts coordinates into a Place. Implementations may fail;
// callers are expected to degrade gracefully.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// Client is a Nominatim reverse-geocoding client with a process-wide
// throttle. All callers, across all goroutines, share the same minimum
// spacing between external calls.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a rate-limited reverse-geocoding client.
func NewClient(baseURL string, timeout, minInterval time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		minInterval: minInterval,
	}
}

// waitTurn blocks the caller until the minimum interval since the last
// external call has elapsed. The mutex is held while sleeping so that
// concurrent callers serialize; the zero lastCall means the first call
// is never delayed.
func (c *Client) waitTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() {
		if elapsed := clock.Now().Sub(c.lastCall); elapsed < c.minInterval {
			clock.Sleep(c.minInterval - elapsed)
		}
	}
	c.lastCall = clock.Now()
}

// Reverse performs a single throttled reverse-geocode lookup.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	c.waitTurn()

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	reqURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Place{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Place{}, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, string(body))
	}

	var nomResp nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		return Place{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return Place{
		DisplayName: nomResp.DisplayName,
		Address:     nomResp.Address,
	}, nil
}

// nominatimResponse is the subset of the Nominatim reverse response the
// resolver needs.
type nominatimResponse struct {
	DisplayName string       `json:"display_name"`
	Address     AddressParts `json:"address"`
}

// FormatAddress builds the comma-joined display string from address
// parts, falling back to the provider display name and finally to the
// raw coordinates.
func FormatAddress(p Place, lat, lon float64) string {
	parts := make([]string, 0, 5)

	appendPart := func(candidates ...string) {
		for _, s := range candidates {
			if s != "" {
				parts = append(parts, s)
				return
			}
		}
	}

	appendPart(p.Address.Road, p.Address.Footway)
	appendPart(p.Address.HouseNumber)
	appendPart(p.Address.Suburb, p.Address.Neighbourhood, p.Address.Village, p.Address.Town, p.Address.City)
	appendPart(p.Address.State)
	appendPart(p.Address.Country)

	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return CoordinateFallback(lat, lon)
}

// CoordinateFallback formats coordinates as the last-resort address.
func CoordinateFallback(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}

