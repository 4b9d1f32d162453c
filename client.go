// Package burner is a client for a running burner server.
package burner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/layer-3/burner/core"
	transport "github.com/layer-3/burner/transport/http"
)

// Client is the public interface of a burner server. One client is one browser session.
type Client interface {
	// Load requests the page, which starts the session bootstrap or retries a failed one
	Load(ctx context.Context) error

	// State returns the page state
	State(ctx context.Context) (*transport.StateView, error)

	// WaitReady loads the page and polls the state until the bootstrap is over
	WaitReady(ctx context.Context) (*transport.StateView, error)

	// Accounts lists the session's burner accounts
	Accounts(ctx context.Context) ([]transport.AccountView, error)

	// CreateAccount deploys a new burner account
	CreateAccount(ctx context.Context) (*transport.AccountView, error)

	// Select makes an account active
	Select(ctx context.Context, address core.Felt) (*transport.StateView, error)

	// Clear removes every burner account of the session
	Clear(ctx context.Context) (*transport.StateView, error)

	// Generate requests a random number with the active account
	Generate(ctx context.Context) (*core.RandomResult, error)
}

// APIError is an error response of the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type httpClient struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// NewClient creates a client for the server at baseURL with a fresh session
func NewClient(baseURL string) (Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &httpClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Jar: jar},
		pollInterval: time.Second,
	}, nil
}

func (c *httpClient) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *httpClient) State(ctx context.Context) (*transport.StateView, error) {
	var view transport.StateView
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *httpClient) WaitReady(ctx context.Context) (*transport.StateView, error) {
	if err := c.Load(ctx); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		view, err := c.State(ctx)
		if err != nil {
			return nil, err
		}
		if view.State != "loading" {
			return view, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *httpClient) Accounts(ctx context.Context) ([]transport.AccountView, error) {
	var out struct {
		Accounts []transport.AccountView `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

func (c *httpClient) CreateAccount(ctx context.Context) (*transport.AccountView, error) {
	var acc transport.AccountView
	if err := c.do(ctx, http.MethodPost, "/api/accounts", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *httpClient) Select(ctx context.Context, address core.Felt) (*transport.StateView, error) {
	var view transport.StateView
	body := map[string]string{"address": address.String()}
	if err := c.do(ctx, http.MethodPost, "/api/accounts/select", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *httpClient) Clear(ctx context.Context) (*transport.StateView, error) {
	var view transport.StateView
	if err := c.do(ctx, http.MethodPost, "/api/accounts/clear", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *httpClient) Generate(ctx context.Context) (*core.RandomResult, error) {
	var result core.RandomResult
	if err := c.do(ctx, http.MethodPost, "/api/random", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
