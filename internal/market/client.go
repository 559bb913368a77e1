package market

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	gocache "github.com/patrickmn/go-cache"

	"github.com/talgya/craftcost/internal/xivdata"
)

// chunkSize is the maximum number of item ids per batched request.
const chunkSize = 100

// Client fetches market snapshots from the pricing API. Snapshots are held
// in a TTL cache so repeated refreshes within the window do not refetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewClient creates a market client. cacheTTL bounds how long a fetched
// snapshot may be served without hitting the API again.
func NewClient(baseURL string, timeout, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// GetMultiple fetches snapshots for the given items in one region.
// Results are keyed by item id; items with no market presence are absent
// from the result. A transport or decode failure fails the whole batch.
func (c *Client) GetMultiple(ctx context.Context, region string, ids []xivdata.ItemID) (map[xivdata.ItemID]Snapshot, error) {
	out := make(map[xivdata.ItemID]Snapshot, len(ids))

	// Serve what we can from cache, fetch only the misses.
	var misses []xivdata.ItemID
	seen := make(map[xivdata.ItemID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := c.cache.Get(cacheKey(region, id)); ok {
			out[id] = v.(Snapshot)
			continue
		}
		misses = append(misses, id)
	}

	for start := 0; start < len(misses); start += chunkSize {
		end := start + chunkSize
		if end > len(misses) {
			end = len(misses)
		}
		chunk := misses[start:end]

		snaps, err := c.fetchChunk(ctx, region, chunk)
		if err != nil {
			return nil, fmt.Errorf("market batch %d-%d: %w", start, end, err)
		}
		for id, snap := range snaps {
			out[id] = snap
			c.cache.SetDefault(cacheKey(region, id), snap)
		}
	}

	slog.Debug("market lookup", "region", region, "requested", len(seen), "fetched", len(misses), "priced", len(out))
	return out, nil
}

func (c *Client) fetchChunk(ctx context.Context, region string, ids []xivdata.ItemID) (map[xivdata.ItemID]Snapshot, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	url := fmt.Sprintf("%s/api/v2/%s/%s?listings=20", c.baseURL, region, strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price fetch: %w", err)
	}
	defer resp.Body.Close()

	// A 404 for the whole batch means none of the items have market data.
	if resp.StatusCode == http.StatusNotFound {
		return map[xivdata.ItemID]Snapshot{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price API status %d: %s", resp.StatusCode, string(body))
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseSnapshots(raw, ids)
}

// decodeBody unwraps the response body according to Content-Encoding.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, nil
	default:
		return resp.Body, nil
	}
}

// parseSnapshots handles both wire shapes: a batched response with an
// "items" map, and the bare single-item object returned when only one id
// was requested.
func parseSnapshots(raw []byte, ids []xivdata.ItemID) (map[xivdata.ItemID]Snapshot, error) {
	var multi multiResponse
	if err := json.Unmarshal(raw, &multi); err == nil && multi.Items != nil {
		out := make(map[xivdata.ItemID]Snapshot, len(multi.Items))
		for key, snap := range multi.Items {
			id, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			snap.ItemID = xivdata.ItemID(id)
			out[snap.ItemID] = snap
		}
		return out, nil
	}

	var single Snapshot
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("parse price response: %w", err)
	}
	if single.ItemID == 0 && len(ids) == 1 {
		single.ItemID = ids[0]
	}
	return map[xivdata.ItemID]Snapshot{single.ItemID: single}, nil
}

func cacheKey(region string, id xivdata.ItemID) string {
	return region + ":" + strconv.Itoa(int(id))
}
