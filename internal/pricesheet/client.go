package pricesheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// maxSheetBytes caps how much of a remote sheet is read
const maxSheetBytes = 32 << 20

// Config holds settings for fetching a sheet over HTTP
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
}

// Client downloads price sheets published at an http(s) URL, e.g. a
// spreadsheet export link. With client credentials configured every request
// carries a bearer token from the token endpoint.
type Client struct {
	config      Config
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// Document is a downloaded sheet
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// NewClient creates a new sheet client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	if c.IsConfigured() {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// Token requests share the client's timeout
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.tokenSource = cc.TokenSource(ctx)
	}
	return c
}

// IsConfigured returns true if client credentials are set
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != "" && c.config.TokenURL != ""
}

// IsRemote reports whether a source names an http(s) URL
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Fetch downloads the document at rawURL
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch sheet: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(body) > maxSheetBytes {
		return nil, fmt.Errorf("sheet exceeds %d bytes", maxSheetBytes)
	}

	return &Document{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Format guesses the document's sheet format
func (d *Document) Format() Format {
	name := d.URL
	if u, err := url.Parse(d.URL); err == nil {
		name = u.Path
	}
	return DetectFormat(name, d.ContentType)
}
