package flights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

const (
	httpTimeout = 10 * time.Second

	amadeusTestURL       = "https://test.api.amadeus.com"
	amadeusProductionURL = "https://api.amadeus.com"

	tokenPath  = "/v1/security/oauth2/token"
	offersPath = "/v2/shopping/flight-offers"

	// tokens are refreshed a minute before the server says they expire
	tokenSkew = 60 * time.Second
)

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.url, e.code)
}

// do sends req and decodes a JSON 200 response into dst.
func do(client *http.Client, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{url: req.URL.Path, code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// retryable reports whether err is worth another attempt: transport
// failures, throttling and server errors.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return true
}

// AmadeusClient searches flight offers with OAuth2 client credentials.
type AmadeusClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	retryWait time.Duration
	retries   uint64
	now       func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAmadeusClient constructs a client for env, which is "production" or
// anything else for the test environment.
func NewAmadeusClient(clientID, clientSecret, env string) *AmadeusClient {
	base := amadeusTestURL
	if env == "production" {
		base = amadeusProductionURL
	}
	return &AmadeusClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      base,
		client:       newHTTPClient(),
		retryWait:    200 * time.Millisecond,
		retries:      2,
		now:          time.Now,
	}
}

// NewAmadeusClientWithURL constructs a client pointing at a custom base URL (for tests).
func NewAmadeusClientWithURL(baseURL, clientID, clientSecret string) *AmadeusClient {
	c := NewAmadeusClient(clientID, clientSecret, "")
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	c.retryWait = 5 * time.Millisecond
	return c
}

// SetClock replaces the clock used for token expiry.
func (c *AmadeusClient) SetClock(now func() time.Time) {
	c.now = now
}

func (c *AmadeusClient) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(
		func() error {
			err := op()
			if err != nil && !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), c.retries),
			ctx,
		),
	)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached token or fetches a new one.
func (c *AmadeusClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	var raw tokenResponse
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating token request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return do(c.client, req, &raw)
	})
	if err != nil {
		return "", fmt.Errorf("amadeus token: %w", err)
	}
	if raw.AccessToken == "" {
		return "", fmt.Errorf("amadeus token: empty access token")
	}

	expiresIn := raw.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 1799
	}
	c.token = raw.AccessToken
	c.expires = c.now().Add(time.Duration(expiresIn)*time.Second - tokenSkew)
	return c.token, nil
}

func (c *AmadeusClient) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type offersResponse struct {
	Data []struct {
		Price struct {
			Total string `json:"total"`
		} `json:"price"`
	} `json:"data"`
}

// CheapestOffer searches one-way economy offers for a single adult and
// returns the lowest total price.
func (c *AmadeusClient) CheapestOffer(ctx context.Context, origin, destination string, date time.Time) (float64, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return 0, ErrUnavailable
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	q := url.Values{
		"originLocationCode":      {origin},
		"destinationLocationCode": {destination},
		"departureDate":           {date.Format("2006-01-02")},
		"adults":                  {"1"},
		"travelClass":             {"ECONOMY"},
		"max":                     {"5"},
	}
	endpoint := c.baseURL + offersPath + "?" + q.Encode()

	var raw offersResponse
	err = c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating offers request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return do(c.client, req, &raw)
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnauthorized {
			c.dropToken()
		}
		return 0, fmt.Errorf("amadeus offers %s to %s: %w", origin, destination, err)
	}

	var cheapest decimal.Decimal
	found := false
	for _, offer := range raw.Data {
		total, err := decimal.NewFromString(offer.Price.Total)
		if err != nil || !total.IsPositive() {
			continue
		}
		if !found || total.LessThan(cheapest) {
			cheapest, found = total, true
		}
	}
	if !found {
		return 0, fmt.Errorf("amadeus offers %s to %s: %w", origin, destination, ErrUnavailable)
	}
	return cheapest.InexactFloat64(), nil
}
