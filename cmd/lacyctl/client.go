package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/binding"
	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/router"
)

// apiClient talks to the control server's REST API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) Bindings(ctx context.Context) ([]binding.Binding, error) {
	var out []binding.Binding
	err := c.do(ctx, http.MethodGet, "/api/bindings", nil, &out)
	return out, err
}

func (c *apiClient) PutBinding(ctx context.Context, b binding.Binding) (binding.Binding, error) {
	var out binding.Binding
	err := c.do(ctx, http.MethodPut, "/api/bindings/"+url.PathEscape(b.ControlID), b, &out)
	return out, err
}

func (c *apiClient) DeleteBinding(ctx context.Context, controlID string) error {
	return c.do(ctx, http.MethodDelete, "/api/bindings/"+url.PathEscape(controlID), nil, nil)
}

func (c *apiClient) ClearBindings(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/bindings", nil, nil)
}

func (c *apiClient) SendMIDI(ctx context.Context, ev input.MIDIEvent) (router.Result, error) {
	var out router.Result
	err := c.do(ctx, http.MethodPost, "/api/input/midi", ev, &out)
	return out, err
}

func (c *apiClient) SendOSC(ctx context.Context, ev input.OSCEvent) (router.Result, error) {
	var out router.Result
	err := c.do(ctx, http.MethodPost, "/api/input/osc", ev, &out)
	return out, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("➡️ %s %s", method, req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
