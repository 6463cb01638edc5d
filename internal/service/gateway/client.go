// Package gateway talks to the mobile money / card payment provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/sync/errgroup"
)

// Gateway is implemented by Client and Simulated.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	Status(ctx context.Context, txIDs ...string) ([]TransactionStatus, error)
}

type Config struct {
	APIURL   string
	ClientID string
	APIKey   string
	CacheTTL time.Duration
}

type cachedStatus struct {
	status TransactionStatus
	expiry time.Time
}

type Client struct {
	client *http.Client
	config Config

	cacheMu   sync.RWMutex
	cacheData map[string]cachedStatus
}

func NewClient(cfg Config) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Client{
		client: &http.Client{
			Transport: &AuthTransport{
				ClientID: cfg.ClientID,
				APIKey:   cfg.APIKey,
				Base:     http.DefaultTransport,
			},
			Timeout: 10 * time.Second,
		},
		config:    cfg,
		cacheData: make(map[string]cachedStatus),
	}
}

// AuthTransport adds bearer credentials and asks for brotli bodies.
type AuthTransport struct {
	ClientID string
	APIKey   string
	Base     http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	if t.ClientID != "" {
		req.Header.Set("X-Client-Id", t.ClientID)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	return t.Base.RoundTrip(req)
}

func (c *Client) Initiate(ctx context.Context, in InitiateRequest) (*InitiateResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	var out InitiateResponse
	if err := c.do(ctx, http.MethodPost, "/payments", bytes.NewReader(body), &out); err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}
	if out.TransactionID == "" {
		out.TransactionID = in.TransactionID
	}
	return &out, nil
}

// Status returns the provider status of each transaction, in input order.
// Answers are cached for CacheTTL.
func (c *Client) Status(ctx context.Context, txIDs ...string) ([]TransactionStatus, error) {
	if result, ok := c.cached(txIDs); ok {
		return result, nil
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	// Double check logic
	var missing []string
	now := time.Now()
	for _, id := range txIDs {
		if data, ok := c.cacheData[id]; !ok || !now.Before(data.expiry) {
			missing = append(missing, id)
		}
	}

	fetched := make([]TransactionStatus, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range missing {
		g.Go(func() error {
			var st TransactionStatus
			if err := c.do(gctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &st); err != nil {
				return fmt.Errorf("failed to fetch status of %s: %w", id, err)
			}
			// the provider may answer with its own reference
			st.TransactionID = id
			fetched[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	expiry := time.Now().Add(c.config.CacheTTL)
	for i, id := range missing {
		c.cacheData[id] = cachedStatus{status: fetched[i], expiry: expiry}
	}

	result := make([]TransactionStatus, len(txIDs))
	for i, id := range txIDs {
		result[i] = c.cacheData[id].status
	}
	return result, nil
}

func (c *Client) cached(txIDs []string) ([]TransactionStatus, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	now := time.Now()
	result := make([]TransactionStatus, len(txIDs))
	for i, id := range txIDs {
		data, ok := c.cacheData[id]
		if !ok || !now.Before(data.expiry) {
			return nil, false
		}
		result[i] = data.status
	}
	return result, true
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	if resp.Header.Get("Content-Encoding") == "br" {
		resp.Body = &readCloserWrapper{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr ErrorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && len(apiErr.Errors) > 0 {
			return &apiErr
		}
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type readCloserWrapper struct {
	io.Reader
	io.Closer
}

func (r *readCloserWrapper) Read(p []byte) (n int, err error) {
	return r.Reader.Read(p)
}

func (r *readCloserWrapper) Close() error {
	return r.Closer.Close()
}
