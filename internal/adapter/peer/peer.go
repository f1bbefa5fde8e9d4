// Package peer implements the cross-device request contract over HTTP
// against another pouchlog instance sharing the same logical state.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pouchlog/internal/domain"
)

const httpTimeout = 5 * time.Second

// Client fetches snapshots from a paired device.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a peer client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: baseURL,
	}
}

var _ domain.Peer = (*Client)(nil)

// Reachable reports whether the peer answers its health endpoint. Checked
// before any request is sent; an unreachable peer is skipped, not retried
// inline.
func (c *Client) Reachable() bool {
	resp, err := c.http.Get(c.baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// FetchSnapshot requests the peer's latest snapshot record. Returns nil when
// the peer has none.
func (c *Client) FetchSnapshot(ctx context.Context) (*domain.SnapshotRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/snapshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peer snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peer snapshot: status %d", resp.StatusCode)
	}

	var body struct {
		Present bool                   `json:"present"`
		Record  *domain.SnapshotRecord `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("peer snapshot: %w", err)
	}
	if !body.Present {
		return nil, nil
	}
	return body.Record, nil
}

// NotifyChange tells the peer that the shared event store changed so it can
// resync its own live state.
func (c *Client) NotifyChange(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync/notify", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("peer notify: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("peer notify: status %d", resp.StatusCode)
	}
	return nil
}
