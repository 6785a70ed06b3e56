package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/auth"
	"github.com/fentz26/tempo/internal/config"
	"github.com/fentz26/tempo/internal/tui"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// apiClient is the shared HTTP client with timeout.
var apiClient = &http.Client{
	Timeout: DefaultClientTimeout,
}

// apiToken returns the bearer token from the environment or the stored login.
func apiToken() string {
	m, err := auth.NewManager(config.DataDir())
	if err != nil {
		return ""
	}
	return m.Token()
}

// typedClient returns the typed client used by the dashboard and watch loops.
func typedClient() *tui.Client {
	return tui.NewClient(apiAddr, apiToken())
}

// apiDo performs a request against the API and returns the body of a 2xx reply.
func apiDo(method, path string, data interface{}) ([]byte, error) {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, strings.TrimRight(apiAddr, "/")+path, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := apiToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
	}

	return respBody, nil
}

// apiGet performs a GET request to the API with timeout.
func apiGet(path string) ([]byte, error) {
	return apiDo(http.MethodGet, path, nil)
}

// apiPost performs a POST request to the API with timeout.
func apiPost(path string, data interface{}) ([]byte, error) {
	return apiDo(http.MethodPost, path, data)
}

func apiPatch(path string, data interface{}) ([]byte, error) {
	return apiDo(http.MethodPatch, path, data)
}

func apiDelete(path string) error {
	_, err := apiDo(http.MethodDelete, path, nil)
	return err
}

// getJSON GETs path and decodes the reply into v.
func getJSON(path string, v interface{}) error {
	resp, err := apiGet(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, v)
}

// postJSON POSTs data and decodes the reply into v.
func postJSON(path string, data, v interface{}) error {
	resp, err := apiPost(path, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, v)
}

func patchJSON(path string, data, v interface{}) error {
	resp, err := apiPatch(path, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, v)
}

// CheckHealth checks if the daemon is healthy and returns the health response.
func CheckHealth() (*api.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return typedClient().Health(ctx)
}
