package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is an authenticated XRPC client for a single Bluesky account. It
// is constructed once, logged in once (with backoff on rate limiting) and
// then owned exclusively by the publish pipeline; it is not safe for
// concurrent use and does not need to be.
type Client struct {
	httpClient *http.Client
	serviceURL string
	userAgent  string

	accessJwt  string
	refreshJwt string
	did        string
}

func NewClient(httpClient *http.Client, serviceURL string, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		userAgent:  userAgent,
	}
}

// Login creates a session, retrying with exponential backoff when the PDS
// rate-limits the attempt. Any other error is returned immediately.
func (c *Client) Login(ctx context.Context, identifier, password string, maxRetries int, initialDelay time.Duration) error {
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := c.createSession(ctx, identifier, password)
		if err == nil {
			slog.Info("Logged in to Bluesky", "handle", identifier, "did", c.did)
			return nil
		}

		if !IsRateLimited(err) {
			return fmt.Errorf("login failed: %w", err)
		}

		if attempt == maxRetries {
			break
		}

		slog.Warn("Login rate limited, backing off",
			"attempt", attempt,
			"max_retries", maxRetries,
			"delay", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("login failed after %d rate-limited attempts", maxRetries)
}

func (c *Client) createSession(ctx context.Context, identifier, password string) error {
	var resp createSessionResponse
	err := c.procedure(ctx, "com.atproto.server.createSession",
		createSessionRequest{Identifier: identifier, Password: password}, &resp)
	if err != nil {
		return err
	}

	c.accessJwt = resp.AccessJwt
	c.refreshJwt = resp.RefreshJwt
	c.did = resp.Did
	return nil
}

// withSession runs an authenticated call, refreshing the session and
// retrying once when the access token has expired. Access tokens are
// short-lived while the daemon runs for weeks, so expiry mid-run is the
// normal case rather than a fault.
func (c *Client) withSession(ctx context.Context, call func() error) error {
	err := call()
	if !isSessionExpired(err) {
		return err
	}

	if refreshErr := c.refreshSession(ctx); refreshErr != nil {
		return fmt.Errorf("failed to refresh session: %w", refreshErr)
	}

	return call()
}

// refreshSession exchanges the refresh token for a new token pair.
func (c *Client) refreshSession(ctx context.Context) error {
	endpoint := c.serviceURL + "/xrpc/com.atproto.server.refreshSession"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.refreshJwt)

	var resp createSessionResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}

	c.accessJwt = resp.AccessJwt
	c.refreshJwt = resp.RefreshJwt
	slog.Info("Refreshed Bluesky session", "did", c.did)
	return nil
}

// SendTextPost publishes a text-only post with a clickable link facet over
// the link occurrence inside the text.
func (c *Client) SendTextPost(ctx context.Context, text string, link string) error {
	return c.createPost(ctx, text, link, nil)
}

// SendImagePost uploads the image blob and publishes a post embedding it,
// with the given accessibility alt text.
func (c *Client) SendImagePost(ctx context.Context, text string, link string, image []byte, alt string) error {
	blob, err := c.uploadBlob(ctx, image)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	embed := &imagesEmbed{
		Type:   "app.bsky.embed.images",
		Images: []embedImage{{Alt: alt, Image: blob}},
	}

	return c.createPost(ctx, text, link, embed)
}

// GetRecentPosts returns the text of the account's most recent posts,
// newest first, up to limit.
func (c *Client) GetRecentPosts(ctx context.Context, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("actor", c.did)
	params.Set("limit", strconv.Itoa(limit))

	var resp authorFeedResponse
	err := c.withSession(ctx, func() error {
		resp = authorFeedResponse{}
		return c.query(ctx, "app.bsky.feed.getAuthorFeed", params, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch author feed: %w", err)
	}

	texts := make([]string, 0, len(resp.Feed))
	for _, item := range resp.Feed {
		texts = append(texts, item.Post.Record.Text)
	}

	return texts, nil
}

func (c *Client) createPost(ctx context.Context, text string, link string, embed *imagesEmbed) error {
	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Facets:    linkFacets(text, link),
		Embed:     embed,
	}

	req := createRecordRequest{
		Repo:       c.did,
		Collection: "app.bsky.feed.post",
		Record:     record,
	}

	err := c.withSession(ctx, func() error {
		return c.procedure(ctx, "com.atproto.repo.createRecord", req, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to create post record: %w", err)
	}

	return nil
}

// linkFacets marks the link span inside the post text as a clickable link.
// Facet indices are byte offsets into the UTF-8 text, not rune offsets.
func linkFacets(text string, link string) []facet {
	start := strings.Index(text, link)
	if start < 0 {
		return nil
	}

	return []facet{{
		Index: byteSlice{ByteStart: start, ByteEnd: start + len(link)},
		Features: []facetFeature{{
			Type: "app.bsky.richtext.facet#link",
			URI:  link,
		}},
	}}
}

func (c *Client) uploadBlob(ctx context.Context, data []byte) (json.RawMessage, error) {
	endpoint := c.serviceURL + "/xrpc/com.atproto.repo.uploadBlob"

	// The request is rebuilt inside the closure so a retried call carries a
	// fresh body reader and the refreshed token.
	var resp uploadBlobResponse
	err := c.withSession(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "image/jpeg")
		c.setAuthHeaders(req)

		return c.do(req, &resp)
	})
	if err != nil {
		return nil, err
	}

	return resp.Blob, nil
}

// procedure performs an XRPC POST call with a JSON body.
func (c *Client) procedure(ctx context.Context, method string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.serviceURL + "/xrpc/" + method
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	return c.do(req, out)
}

// query performs an XRPC GET call with query parameters.
func (c *Client) query(ctx context.Context, method string, params url.Values, out interface{}) error {
	endpoint := c.serviceURL + "/xrpc/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeaders(req)

	return c.do(req, out)
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		xrpcErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, xrpcErr); err != nil || xrpcErr.ErrorCode == "" {
			xrpcErr.ErrorCode = resp.Status
		}
		return xrpcErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
