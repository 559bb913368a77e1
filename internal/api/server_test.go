package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/craftcost/internal/craft"
	"github.com/talgya/craftcost/internal/market"
	"github.com/talgya/craftcost/internal/persistence"
	"github.com/talgya/craftcost/internal/xivdata"
)

type stubPrices struct {
	snaps map[xivdata.ItemID]market.Snapshot
}

func (s stubPrices) GetMultiple(_ context.Context, _ string, _ []xivdata.ItemID) (map[xivdata.ItemID]market.Snapshot, error) {
	return s.snaps, nil
}

// testServer wires a server over a two-level recipe: circlet → ingot×2,
// ingot → ore×3, ore at 10 gil.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := xivdata.NewStore(
		[]xivdata.Item{
			{ID: 100, Name: "Circlet", CanBeHQ: true, Tradeable: true},
			{ID: 101, Name: "Ingot", CanBeHQ: true, Tradeable: true},
			{ID: 102, Name: "Ore", Tradeable: true},
		},
		[]xivdata.Recipe{
			{ResultID: 100, Yield: 1, Ingredients: []xivdata.Ingredient{{ItemID: 101, Quantity: 2}}},
			{ResultID: 101, Yield: 1, Ingredients: []xivdata.Ingredient{{ItemID: 102, Quantity: 3}}},
		},
	)

	prices := stubPrices{snaps: map[xivdata.ItemID]market.Snapshot{
		102: {ItemID: 102, Listings: []market.Listing{
			{PricePerUnit: 10, Quantity: 99, WorldName: "Phoenix"},
		}},
	}}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Server{
		Data:     store,
		Store:    db,
		Engine:   craft.NewPipeline(store, prices, "europe"),
		AdminKey: "hunter2",
		started:  time.Now(),
	}
}

func (s *Server) mux() http.Handler {
	limiter := NewRateLimiter(1000, time.Minute)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/item/", RateLimitMiddleware(limiter, s.handleItemRoutes))
	mux.HandleFunc("/api/v1/lists", s.handleLists)
	mux.HandleFunc("/api/v1/list/", RateLimitMiddleware(limiter, s.handleListRoutes))
	mux.HandleFunc("/api/v1/owned", s.handleOwnedAll)
	mux.HandleFunc("/api/v1/owned/", s.adminOnly(s.handleOwnedItem))
	return mux
}

func doRequest(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux().ServeHTTP(rec, req)
	return rec
}

func TestItemTreeEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/item/100/tree", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"Circlet"`)
	// Two ingots at 3 ore each, 10 gil per ore.
	assert.Contains(t, body, `"effectiveCost": 60`)
}

func TestItemMaterialsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/item/100/materials", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalQuantity": 6`)
}

func TestItemUnknownReturns404(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/item/9999/tree", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemBadIDReturns400(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/item/banana/tree", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateListRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"gear","items":[{"itemId":100,"quantity":1}]}`

	rec := doRequest(t, s, http.MethodPost, "/api/v1/lists", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/lists", body, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/lists", body, "hunter2")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateListRejectsUnknownItems(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"gear","items":[{"itemId":9999,"quantity":1}]}`

	rec := doRequest(t, s, http.MethodPost, "/api/v1/lists", body, "hunter2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDetailResolvesWithOwnership(t *testing.T) {
	s := newTestServer(t)

	id, err := s.Store.CreateList("gear", "europe", true, []persistence.ListItem{
		{ItemID: 100, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, s.Store.SetOwned(101, 2))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/list/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"101": "fully_satisfied"`)
	assert.Contains(t, body, `"102": "shadowed"`)
}

func TestListDetailMissingReturns404(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/list/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnedRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/owned/102", `{"quantity":5}`, "hunter2")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/owned", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"102": 5`)
}

func TestOwnedPutRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/owned/102", `{"quantity":5}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiterExhaustion(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")
	assert.Positive(t, rl.RetryAfter("10.0.0.1"))
}
