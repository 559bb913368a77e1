package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/craftcost/internal/xivdata"
)

func testServer(t *testing.T, prices map[xivdata.ItemID]int, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		// Path shape: /api/v2/{region}/{id,id,...}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v2/"), "/")
		require.Len(t, parts, 2)

		items := make(map[string]Snapshot)
		for _, raw := range strings.Split(parts[1], ",") {
			id, err := strconv.Atoi(raw)
			require.NoError(t, err)
			price, ok := prices[xivdata.ItemID(id)]
			if !ok {
				continue // no market presence
			}
			items[raw] = Snapshot{
				ItemID: xivdata.ItemID(id),
				Listings: []Listing{
					{PricePerUnit: price, Quantity: 1, WorldName: "Phoenix"},
					{PricePerUnit: price * 2, Quantity: 3, HQ: true, WorldName: "Odin"},
				},
				LastUploadTime: 1700000000000,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(multiResponse{Items: items})
	}))
}

func TestGetMultiple(t *testing.T) {
	t.Parallel()

	srv := testServer(t, map[xivdata.ItemID]int{101: 10, 102: 50}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	snaps, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101, 102, 103})
	require.NoError(t, err)

	require.Len(t, snaps, 2)
	assert.Equal(t, 10, snaps[101].Listings[0].PricePerUnit)
	assert.Equal(t, 50, snaps[102].Listings[0].PricePerUnit)

	_, ok := snaps[103]
	assert.False(t, ok, "no market presence means absent, not an error")
}

func TestGetMultipleChunks(t *testing.T) {
	t.Parallel()

	prices := make(map[xivdata.ItemID]int)
	var ids []xivdata.ItemID
	for i := 1; i <= 250; i++ {
		prices[xivdata.ItemID(i)] = i
		ids = append(ids, xivdata.ItemID(i))
	}

	hits := 0
	srv := testServer(t, prices, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	snaps, err := c.GetMultiple(context.Background(), "europe", ids)
	require.NoError(t, err)

	assert.Len(t, snaps, 250)
	assert.Equal(t, 3, hits, "250 ids split into batches of 100")
}

func TestGetMultipleServesFromCache(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := testServer(t, map[xivdata.ItemID]int{101: 10}, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	_, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101})
	require.NoError(t, err)

	snaps, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101})
	require.NoError(t, err)
	require.Contains(t, snaps, xivdata.ItemID(101))
	assert.Equal(t, 1, hits, "second lookup inside the TTL must not refetch")
}

func TestGetMultipleDeduplicatesIDs(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := testServer(t, map[xivdata.ItemID]int{101: 10}, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	snaps, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101, 101, 101})
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
	assert.Equal(t, 1, hits)
}

func TestGetMultipleBatchNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	snaps, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestGetMultipleServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, time.Minute)
	_, err := c.GetMultiple(context.Background(), "europe", []xivdata.ItemID{101})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestParseSnapshotsSingleObject(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Snapshot{
		ItemID:   0, // some endpoints omit the id on single lookups
		Listings: []Listing{{PricePerUnit: 42, Quantity: 1, WorldName: "Shiva"}},
	})
	require.NoError(t, err)

	snaps, err := parseSnapshots(raw, []xivdata.ItemID{77})
	require.NoError(t, err)
	require.Contains(t, snaps, xivdata.ItemID(77))
	assert.Equal(t, 42, snaps[77].Listings[0].PricePerUnit)
}
