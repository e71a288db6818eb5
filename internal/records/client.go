package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultData is stored when a record is added without a body.
const DefaultData = "Auto-generated entry"

// APIError is a non-2xx reply from the records API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("records API returned %d", e.Status)
	}
	return fmt.Sprintf("records API returned %d: %s", e.Status, e.Detail)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Add validates company and url locally and stores a new record.
func (c *Client) Add(ctx context.Context, company, url, data string) (*Record, error) {
	company = strings.TrimSpace(company)
	url = strings.TrimSpace(url)
	if company == "" || url == "" {
		return nil, errors.New("company and url are required")
	}
	if strings.TrimSpace(data) == "" {
		data = DefaultData
	}

	var out Record
	err := c.do(ctx, http.MethodPost, "/add_data", Record{Company: company, URL: url, Data: data}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) ([]Record, error) {
	var out struct {
		Count int      `json:"count"`
		Data  []Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/get_data", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodGet, "/get_data/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id string, p Patch) error {
	if p.Company == nil && p.URL == nil && p.Data == nil {
		return errors.New("no fields to update")
	}
	return c.do(ctx, http.MethodPut, "/update_data/"+id, p, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete_data/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
