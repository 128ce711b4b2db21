// Package storeclient talks to the scheduling store's collection-oriented REST API.
//
// Every collection follows the same convention:
//
//	GET    /{collection}/?skip=N&limit=M   list
//	POST   /{collection}/                   create, returns the stored entity
//	DELETE /{collection}/{id}               delete
//
// Non-2xx responses become *StatusError; when the body is an object with a
// string "detail" field the detail is preserved verbatim.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/pkg/middleware/requestid"
)

const (
	defaultPageSize = 100
	// maxPages bounds paging against stores that ignore skip.
	maxPages     = 200
	maxErrorBody = 64 << 10
)

// Observer receives one callback per store round trip.
type Observer interface {
	ObserveStoreCall(operation, collection string, status int, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	PageSize   int
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// Client is a thin JSON client for the store.
type Client struct {
	base     *url.URL
	http     *http.Client
	pageSize int
	observer Observer
	logger   *zap.Logger
}

// New validates the options and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("store base url %q must be http(s)", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{base: base, http: httpClient, pageSize: pageSize, observer: opts.Observer, logger: logger}, nil
}

// List returns every element of a collection, paging with skip/limit until a short page arrives.
func (c *Client) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var (
		all       []json.RawMessage
		prevFirst json.RawMessage
	)
	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("skip", strconv.Itoa(page*c.pageSize))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, err := c.do(ctx, "list", http.MethodGet, collection, c.collectionURL(collection, query), nil)
		if err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", collection, err)
		}
		if page > 0 && len(items) > 0 && bytes.Equal(items[0], prevFirst) {
			c.logger.Warn("store ignored paging parameters", zap.String("collection", collection))
			return all, nil
		}
		if len(items) > 0 {
			prevFirst = items[0]
		}
		all = append(all, items...)
		if len(items) < c.pageSize {
			return all, nil
		}
	}
	c.logger.Warn("store paging limit reached", zap.String("collection", collection), zap.Int("items", len(all)))
	return all, nil
}

// Create posts payload to the collection and returns the stored entity. A
// successful response without a body yields a nil entity and no error.
func (c *Client) Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", collection, err)
	}
	body, err := c.do(ctx, "create", http.MethodPost, collection, c.collectionURL(collection, nil), encoded)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode created %s: invalid json", collection)
	}
	return json.RawMessage(body), nil
}

// Delete removes one element of a collection.
func (c *Client) Delete(ctx context.Context, collection string, id int64) error {
	target := c.base.JoinPath(collection, strconv.FormatInt(id, 10))
	_, err := c.do(ctx, "delete", http.MethodDelete, collection, target.String(), nil)
	return err
}

// Ping checks that the store answers on its root collection path.
func (c *Client) Ping(ctx context.Context, collection string) error {
	query := url.Values{}
	query.Set("limit", "1")
	_, err := c.do(ctx, "ping", http.MethodGet, collection, c.collectionURL(collection, query), nil)
	return err
}

func (c *Client) collectionURL(collection string, query url.Values) string {
	target := c.base.JoinPath(collection)
	// the store registers collection routes with a trailing slash
	target.Path += "/"
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}

func (c *Client) do(ctx context.Context, operation, method, collection, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.Header, reqID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(operation, collection, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, collection, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody(resp.StatusCode)))
	c.observe(operation, collection, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Method:     method,
			Collection: collection,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
		}
		c.logger.Debug("store call failed",
			zap.String("operation", operation),
			zap.String("collection", collection),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", statusErr.Detail),
		)
		return nil, statusErr
	}
	if readErr != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, readErr)
	}
	return body, nil
}

func (c *Client) observe(operation, collection string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveStoreCall(operation, collection, status, duration)
	}
}

func maxResponseBody(status int) int64 {
	if status < 200 || status > 299 {
		return maxErrorBody
	}
	return 64 << 20
}

// StatusError is returned for any non-2xx store response.
type StatusError struct {
	Method     string
	Collection string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("store %s %s: %d: %s", e.Method, e.Collection, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("store %s %s: %d", e.Method, e.Collection, e.StatusCode)
}

// Detail extracts the store-supplied detail message from err, if any.
func Detail(err error) (string, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail, true
	}
	return "", false
}

// StatusCode returns the store status carried by err, or 0 for transport failures.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// parseDetail only accepts {"detail": "<string>"}; validation payloads where detail is a list are ignored.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
