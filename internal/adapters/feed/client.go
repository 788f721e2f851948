// Package feed implements core.FeedClient against the external job feed HTTP API.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/retry"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
)

const (
	feedPath     = "/jumpseat_user_job_feed"
	registerPath = "/register_jumpseat_user_job_application"

	maxResponseBytes = 4 << 20
	maxErrorBodyLen  = 512
)

// StatusError is returned when the feed answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("feed %s returned HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("feed %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt (429 or 5xx).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ClientOptions configures a feed Client.
type ClientOptions struct {
	BaseURL string // required
	Token   string
	Timeout time.Duration
	// RetryAttempts applies to FetchJobs only; RegisterApplication is single-shot.
	RetryAttempts uint
	RetryDelay    time.Duration
	// ItemsPath is an optional JMESPath expression selecting the item array from an envelope.
	ItemsPath string
	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to the job feed API.
type Client struct {
	baseURL   string
	http      *http.Client
	attempts  uint
	delay     time.Duration
	itemsPath string
	logger    *slog.Logger
}

// NewClient validates opts and builds a Client. A non-empty Token is sent as a
// bearer credential through an oauth2 static token source.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("feed base URL is required")
	}

	itemsPath := strings.TrimSpace(opts.ItemsPath)
	if itemsPath != "" {
		if _, err := jmespath.Compile(itemsPath); err != nil {
			return nil, fmt.Errorf("invalid feed items path %q: %w", itemsPath, err)
		}
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout, Transport: transport},
		attempts:  attempts,
		delay:     delay,
		itemsPath: itemsPath,
		logger:    logger.With("component", "feed_client"),
	}, nil
}

// FetchJobs requests up to req.PageSize items for req.User. Transport errors, 429 and
// 5xx responses are retried with capped exponential backoff; other failures are not.
func (c *Client) FetchJobs(ctx context.Context, req model.FeedRequest) ([]model.FeedItem, error) {
	if req.ExcludeApplyDomains == nil {
		req.ExcludeApplyDomains = []string{}
	}

	var items []model.FeedItem
	err := retry.Do(
		func() error {
			body, err := c.post(ctx, feedPath, req)
			if err != nil {
				return err
			}
			items, err = c.decodeItems(body)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(8*c.delay),
		retry.MaxJitter(max(c.delay/2, time.Millisecond)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "retrying feed fetch", "attempt", n+1, "client_id", req.User, "error", err)
		}),
		retry.RetryIf(shouldRetry),
	)
	if err != nil {
		return nil, apperrors.Upstream(err, "fetch job feed")
	}

	c.logger.DebugContext(ctx, "feed fetched", "client_id", req.User, "page_size", req.PageSize, "items", len(items))
	return items, nil
}

// RegisterApplication tells the feed that feedJobID was consumed for the user. It is
// attempted exactly once.
func (c *Client) RegisterApplication(ctx context.Context, req model.FeedApplicationRequest) error {
	if _, err := c.post(ctx, registerPath, req); err != nil {
		return apperrors.Upstream(err, "register feed application")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WarnContext(ctx, "failed to close feed response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read feed %s response: %w", path, err)
	}

	c.logger.DebugContext(ctx, "feed request completed",
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	if len(body) > maxResponseBytes {
		return nil, retry.Unrecoverable(fmt.Errorf("feed %s response exceeds %d bytes", path, maxResponseBytes))
	}
	return body, nil
}

// decodeItems parses the item array, applying the JMESPath selector when configured.
func (c *Client) decodeItems(body []byte) ([]model.FeedItem, error) {
	if c.itemsPath != "" {
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode feed envelope: %w", err)
		}
		selected, err := jmespath.Search(c.itemsPath, doc)
		if err != nil {
			return nil, fmt.Errorf("evaluate feed items path: %w", err)
		}
		if selected == nil {
			return []model.FeedItem{}, nil
		}
		if body, err = json.Marshal(selected); err != nil {
			return nil, fmt.Errorf("re-encode feed items: %w", err)
		}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode feed items: %w", err)
	}

	// A malformed element becomes a zero item, which screening skips and counts.
	items := make([]model.FeedItem, len(raw))
	for i, elem := range raw {
		if err := json.Unmarshal(elem, &items[i]); err != nil {
			c.logger.Debug("malformed feed item", "index", i, "error", err)
			items[i] = model.FeedItem{}
		}
	}
	return items, nil
}

// shouldRetry leaves context cancellation to retry.Context.
func shouldRetry(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

// truncate caps body at maxErrorBodyLen bytes without splitting a UTF-8 sequence.
func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorBodyLen {
		return s
	}
	cut := maxErrorBodyLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
