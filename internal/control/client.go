package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Client queries a running daemon's control socket.
type Client struct {
	http *http.Client
}

// NewClient dials the Unix socket at socketPath for every request.
func NewClient(socketPath string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// Status fetches /v1/status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.get(ctx, "/v1/status", &st)
	return st, err
}

// Endpoints fetches /v1/endpoints.
func (c *Client) Endpoints(ctx context.Context) ([]Endpoint, error) {
	var resp EndpointsResponse
	if err := c.get(ctx, "/v1/endpoints", &resp); err != nil {
		return nil, err
	}
	return resp.Endpoints, nil
}

// Rules fetches /v1/rules.
func (c *Client) Rules(ctx context.Context) (RulesInfo, error) {
	var ri RulesInfo
	err := c.get(ctx, "/v1/rules", &ri)
	return ri, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	// The host is ignored; the transport always dials the socket.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://seqlinkd"+path, nil)
	if err != nil {
		return fmt.Errorf("control: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("control: is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("control: %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("control: decode response: %w", err)
	}
	return nil
}
