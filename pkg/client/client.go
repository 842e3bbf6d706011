// Package client implements the registration service's HTTP contract: path
// prefix discovery from the served page, the register call with its
// AuthError/TokenError taxonomy, and login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/oarkflow/tcloud-auth/pkg/models"
)

// Client talks to a registration service. It keeps a cookie jar so session
// cookies behave like a browser's same-origin credentials.
type Client struct {
	base *url.URL
	http *http.Client

	prefixOnce sync.Once
	prefix     string
}

// New creates a client for the service serving the page at pageURL. The
// path prefix is resolved lazily from that page and never changes once
// resolved.
func New(pageURL string) (*Client, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:   u,
		http:   &http.Client{Jar: jar},
		prefix: "/",
	}, nil
}

// ResolvePrefix fetches the configured page once and derives the path prefix
// from its tcloud-prefix meta tag. Any failure degrades silently to "/".
func (c *Client) ResolvePrefix(ctx context.Context) string {
	c.prefixOnce.Do(func() {
		c.prefix = c.fetchPrefix(ctx)
	})
	return c.prefix
}

func (c *Client) fetchPrefix(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return "/"
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "/"
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "/"
	}
	value, ok := doc.Find(`meta[name="tcloud-prefix"]`).Attr("content")
	if !ok {
		return "/"
	}
	value = strings.Trim(value, "/")
	if value == "" {
		return "/"
	}
	return "/" + value + "/"
}

func (c *Client) endpoint(ctx context.Context, path string) string {
	u := *c.base
	u.Path = c.ResolvePrefix(ctx) + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Register issues exactly one register call with the given payload. A
// non-200 response with the API error shape is returned as *models.APIError;
// anything else that goes wrong is returned as a plain error.
func (c *Client) Register(ctx context.Context, payload map[string]any) (*models.Enrollment, error) {
	data, err := c.post(ctx, "api/auth/register", payload)
	if err != nil {
		return nil, err
	}
	var enrollment models.Enrollment
	if err := json.Unmarshal(data, &enrollment); err != nil {
		return nil, fmt.Errorf("malformed enrollment response: %w", err)
	}
	return &enrollment, nil
}

// Login exchanges credentials and a TOTP code for a session token. The
// session cookie lands in the client's jar as well.
func (c *Client) Login(ctx context.Context, username, password, totpCode string) (string, error) {
	data, err := c.post(ctx, "api/auth/login", map[string]any{
		"username": username,
		"password": password,
		"totp":     totpCode,
	})
	if err != nil {
		return "", err
	}
	var result models.LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("malformed login response: %w", err)
	}
	return result.Token, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(ctx, path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &models.APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil {
			return nil, fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
		}
		return nil, apiErr
	}
	return data, nil
}
