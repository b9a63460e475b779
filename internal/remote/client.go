// Package remote implements the HTTP client for the authoritative cloud
// store. Every connectivity-class failure (dial errors, timeouts, 5xx) is
// folded into syncer.ErrRemoteUnavailable so callers branch on one
// unavailability condition; 4xx responses surface as non-retryable
// rejections.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

type Client struct {
	baseURL    string
	apiKey     string
	terminalID string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, terminalID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		terminalID: terminalID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping probes the store's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	c.decorate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", syncer.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: health returned %d", syncer.ErrRemoteUnavailable, resp.StatusCode)
	}
	return nil
}

// GetAll lists a collection, optionally narrowed by equality filters passed
// as query parameters.
func (c *Client) GetAll(ctx context.Context, collection string, filter map[string]string) ([]model.Record, error) {
	endpoint := c.baseURL + "/collections/" + url.PathEscape(collection)
	if len(filter) > 0 {
		q := url.Values{}
		for k, v := range filter {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}
	var recs []model.Record
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Get fetches a single record; a missing record is (nil, nil), not an error.
func (c *Client) Get(ctx context.Context, collection, id string) (model.Record, error) {
	endpoint := c.recordURL(collection, id)
	var rec model.Record
	err := c.do(ctx, http.MethodGet, endpoint, nil, &rec)
	if err != nil {
		var rejected *syncer.RejectedError
		if errors.As(err, &rejected) && rejected.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (c *Client) Create(ctx context.Context, collection string, rec model.Record) (model.Record, error) {
	endpoint := c.baseURL + "/collections/" + url.PathEscape(collection)
	var out model.Record
	if err := c.do(ctx, http.MethodPost, endpoint, rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, partial model.Record) (model.Record, error) {
	var out model.Record
	if err := c.do(ctx, http.MethodPatch, c.recordURL(collection, id), partial, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record. A 404 is treated as success: the record being
// gone is the outcome the caller wanted.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	err := c.do(ctx, http.MethodDelete, c.recordURL(collection, id), nil, nil)
	if err != nil {
		var rejected *syncer.RejectedError
		if errors.As(err, &rejected) && rejected.Status == http.StatusNotFound {
			return nil
		}
	}
	return err
}

func (c *Client) recordURL(collection, id string) string {
	return c.baseURL + "/collections/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", syncer.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: store returned %d", syncer.ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &syncer.RejectedError{
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(detail)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.terminalID != "" {
		req.Header.Set("X-Terminal-ID", c.terminalID)
	}
}
