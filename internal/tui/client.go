package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twopeaks/controlroom/internal/model"
)

// Reviewer is the slice of the review queue the console needs.
// *service.ReviewService and *APIClient both satisfy it.
type Reviewer interface {
	ListQueued(ctx context.Context, table model.ReviewTable) ([]model.ReviewItem, error)
	Claim(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) (*model.ReviewItem, error)
	Decide(ctx context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error)
	Release(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) error
}

// APIClient talks to the control room HTTP API.
type APIClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError carries the status and message of a failed call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *APIClient) ListQueued(ctx context.Context, table model.ReviewTable) ([]model.ReviewItem, error) {
	var resp struct {
		Data []model.ReviewItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/review/"+url.PathEscape(string(table))+"/queued", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *APIClient) Claim(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) (*model.ReviewItem, error) {
	var item model.ReviewItem
	path := fmt.Sprintf("/review/%s/%s/claim", table, id)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"reviewer": reviewer}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *APIClient) Decide(ctx context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error) {
	body := map[string]any{
		"status":      string(d.Status),
		"version":     d.ExpectedVersion,
		"reviewed_by": d.ReviewedBy,
	}
	if d.Subject != nil {
		body["subject"] = *d.Subject
	}
	if d.Message != nil {
		body["message"] = *d.Message
	}
	var item model.ReviewItem
	path := fmt.Sprintf("/review/%s/%s/decision", table, id)
	if err := c.do(ctx, http.MethodPost, path, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Release gives up reviewer's edit lease on an item.
func (c *APIClient) Release(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) error {
	path := fmt.Sprintf("/review/%s/%s/claim?reviewer=%s", table, id, url.QueryEscape(reviewer))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
