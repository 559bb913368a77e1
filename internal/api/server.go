// Package api provides the HTTP API for crafting cost resolution.
// GET endpoints are public (read-only queries).
// Mutating endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/craftcost/internal/craft"
	"github.com/talgya/craftcost/internal/persistence"
	"github.com/talgya/craftcost/internal/xivdata"
)

// Server serves cost resolutions and crafting lists over HTTP.
type Server struct {
	Data     *xivdata.Store
	Store    *persistence.DB
	Engine   *craft.Pipeline
	Port     int
	AdminKey string // Bearer token for mutating endpoints. Empty = mutations disabled.

	started time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()

	// Every resolution hits the market board API, so the resolving
	// endpoints get a per-IP budget.
	resolveLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/item/", RateLimitMiddleware(resolveLimiter, s.handleItemRoutes))
	mux.HandleFunc("/api/v1/lists", s.handleLists)
	mux.HandleFunc("/api/v1/list/", RateLimitMiddleware(resolveLimiter, s.handleListRoutes))
	mux.HandleFunc("/api/v1/owned", s.handleOwnedAll)

	// Admin endpoints (mutations require bearer token).
	mux.HandleFunc("/api/v1/owned/", s.adminOnly(s.handleOwnedItem))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on mutating
// requests. GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CRAFTCOST_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":           "craftcost",
		"region":         s.Engine.Region,
		"items":          s.Data.ItemCount(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// handleItemRoutes dispatches GET /api/v1/item/:id/tree and
// GET /api/v1/item/:id/materials.
func (s *Server) handleItemRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/item/"), "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/item/:id/tree or /api/v1/item/:id/materials", http.StatusNotFound)
		return
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	quantity := queryInt(r, "quantity", 1)
	crystals := queryBool(r, "crystals", false)

	res, err := s.Engine.Resolve(r.Context(), xivdata.ItemID(id), quantity, crystals)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	switch parts[1] {
	case "tree":
		writeJSON(w, map[string]any{
			"root":          res.Root,
			"effectiveCost": craft.EffectiveRootCost(res.Root),
			"region":        res.Region,
			"fetchedAt":     res.FetchedAt,
		})
	case "materials":
		writeJSON(w, map[string]any{
			"materials": materialsView(res.Aggregation),
			"region":    res.Region,
			"fetchedAt": res.FetchedAt,
		})
	default:
		http.Error(w, "unknown item view", http.StatusNotFound)
	}
}

// handleLists serves GET /api/v1/lists (enumerate) and POST /api/v1/lists
// (create). Creation is admin-gated like every other mutation.
func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		lists, err := s.Store.Lists()
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, lists)

	case http.MethodPost:
		s.adminOnly(s.handleCreateList)(w, r)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		Region       string `json:"region"`
		ShowCrystals bool   `json:"showCrystals"`
		Items        []struct {
			ItemID   xivdata.ItemID `json:"itemId"`
			Quantity int            `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Items) == 0 {
		http.Error(w, "name and at least one item required", http.StatusBadRequest)
		return
	}
	if req.Region == "" {
		req.Region = s.Engine.Region
	}

	items := make([]persistence.ListItem, 0, len(req.Items))
	for _, it := range req.Items {
		if _, ok := s.Data.GetItem(it.ItemID); !ok {
			http.Error(w, fmt.Sprintf("unknown item %d", it.ItemID), http.StatusBadRequest)
			return
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, persistence.ListItem{ItemID: it.ItemID, Quantity: qty})
	}

	id, err := s.Store.CreateList(req.Name, req.Region, req.ShowCrystals, items)
	if err != nil {
		slog.Error("create list failed", "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"id": id})
}

// handleListRoutes serves GET /api/v1/list/:id (resolve with ownership) and
// DELETE /api/v1/list/:id.
func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/list/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "expected /api/v1/list/:id", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleListDetail(w, r, id)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
			if err := s.Store.DeleteList(id); err != nil {
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListDetail(w http.ResponseWriter, r *http.Request, id string) {
	list, err := s.Store.ListByID(id)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		http.Error(w, "no such list", http.StatusNotFound)
		return
	}

	items, err := s.Store.ListItems(id)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	entries := make([]craft.ListEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, craft.ListEntry{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	res, err := s.Engine.ResolveMany(r.Context(), entries, list.ShowCrystals)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	owned, err := s.Store.OwnedQuantities()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	statuses := craft.ResolveOwnership(res.Aggregation, owned)

	statusView := make(map[xivdata.ItemID]string, len(statuses))
	for itemID, st := range statuses {
		statusView[itemID] = st.String()
	}

	writeJSON(w, map[string]any{
		"list":      list,
		"roots":     res.Roots,
		"materials": materialsView(res.Aggregation),
		"statuses":  statusView,
		"region":    res.Region,
		"fetchedAt": res.FetchedAt,
	})
}

// handleOwnedAll serves GET /api/v1/owned.
func (s *Server) handleOwnedAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owned, err := s.Store.OwnedQuantities()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, owned)
}

// handleOwnedItem serves PUT /api/v1/owned/:id with body {"quantity": n}.
func (s *Server) handleOwnedItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/v1/owned/"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := s.Store.SetOwned(xivdata.ItemID(id), req.Quantity); err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// materialsView flattens the aggregation into the depth-bucketed shape the
// frontend renders.
func materialsView(agg *craft.Aggregation) map[string]any {
	return map[string]any{
		"byDepth":    agg.ByDepth,
		"byId":       agg.ByID,
		"childEdges": agg.ChildEdges,
	}
}

func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, craft.ErrUnknownItem):
		http.Error(w, "unknown item", http.StatusNotFound)
	case errors.Is(err, craft.ErrSuperseded):
		http.Error(w, "superseded by a newer refresh", http.StatusConflict)
	default:
		slog.Error("resolve failed", "error", err)
		http.Error(w, "market board unavailable", http.StatusBadGateway)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryBool(r *http.Request, key string, fallback bool) bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
