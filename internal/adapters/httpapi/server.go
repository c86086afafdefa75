// Package httpapi serves the fetch engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/application"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

// Fetcher is the core the routes serve
type Fetcher interface {
	Media(ctx context.Context, name, cursor string) (*domain.MediaPage, error)
	Item(ctx context.Context, itemID string) (json.RawMessage, error)

	// DebugMedia and DebugItem return the undecoded upstream response
	DebugMedia(ctx context.Context, name, cursor string) (json.RawMessage, error)
	DebugItem(ctx context.Context, itemID string) (json.RawMessage, error)
}

// StatsSource reports cache and account statistics
type StatsSource interface {
	Stats(ctx context.Context) (*application.CacheStats, error)
}

// Options configures the router
type Options struct {
	// MountTwitter mounts /twitter/*; without accounts nothing there can succeed
	MountTwitter bool
	// RequestTimeout bounds each request, zero means none
	RequestTimeout time.Duration
}

type handler struct {
	fetcher Fetcher
	stats   StatsSource
}

// NewRouter builds the HTTP routes
func NewRouter(fetcher Fetcher, stats StatsSource, opts Options) http.Handler {
	h := &handler{fetcher: fetcher, stats: stats}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.health)

	if opts.MountTwitter {
		r.Route("/twitter", func(r chi.Router) {
			r.Get("/media", h.media)
			r.Get("/tweet", h.tweet)
		})
	}

	return r
}

type healthResponse struct {
	Status         string `json:"status"`
	Accounts       int    `json:"accounts"`
	CachedItems    int    `json:"cached_items"`
	RecacheEntries int    `json:"recache_entries"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeNote(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Accounts:       stats.Accounts,
		CachedItems:    stats.CachedItems,
		RecacheEntries: stats.RecacheEntries,
	})
}

type mediaResponse struct {
	ItemIDs  []string `json:"tweet_ids"`
	NextPage string   `json:"next_page,omitempty"`
}

func (h *handler) media(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeNote(w, http.StatusBadRequest, "missing username")
		return
	}
	target, err := domain.ParseTargetInput(username)
	if err != nil {
		writeNote(w, http.StatusBadRequest, err.Error())
		return
	}

	cursor := r.URL.Query().Get("cursor")
	if debugRequested(r) {
		raw, err := h.fetcher.DebugMedia(r.Context(), target.Name, cursor)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeRaw(w, raw)
		return
	}

	page, err := h.fetcher.Media(r.Context(), target.Name, cursor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := mediaResponse{ItemIDs: page.ItemIDs}
	if resp.ItemIDs == nil {
		resp.ItemIDs = []string{}
	}
	if page.NextCursor != "" {
		resp.NextPage = nextPage(username, page.NextCursor)
	}
	writeJSON(w, http.StatusOK, resp)
}

// nextPage builds the relative link to the following page
func nextPage(username, cursor string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("cursor", cursor)
	return "media?" + q.Encode()
}

func (h *handler) tweet(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("tweet")
	if input == "" {
		writeNote(w, http.StatusBadRequest, "missing tweet")
		return
	}
	itemID, err := domain.ParseItemInput(input)
	if err != nil {
		writeNote(w, http.StatusBadRequest, err.Error())
		return
	}

	fetch := h.fetcher.Item
	if debugRequested(r) {
		fetch = h.fetcher.DebugItem
	}

	payload, err := fetch(r.Context(), itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeRaw(w, payload)
}

// debugRequested reports a ?debug query flag, with or without a value
func debugRequested(r *http.Request) bool {
	_, ok := r.URL.Query()["debug"]
	return ok
}
