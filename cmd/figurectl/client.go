package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBase = "/api/v1"

type figureClient struct {
	baseURL string
	http    *http.Client
}

func newClient() *figureClient {
	return &figureClient{
		baseURL: serverURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs a request with identity headers and decodes the response.
func (c *figureClient) do(method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user := resolvedUser(); user != "" {
		req.Header.Set("X-User-Id", user)
	}
	if role := resolvedRole(); role != "" {
		req.Header.Set("X-User-Role", role)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *figureClient) getJSON(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

func (c *figureClient) postJSON(path string, body any, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

func (c *figureClient) patchJSON(path string, body any, v any) error {
	return c.do(http.MethodPatch, path, body, v)
}

// getRaw performs a GET request and returns the raw JSON.
func (c *figureClient) getRaw(path string) (map[string]any, error) {
	var result map[string]any
	if err := c.getJSON(path, &result); err != nil {
		return nil, err
	}
	return result, nil
}
