package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tensorline/tensorline-backend/internal/cache"
	"github.com/tensorline/tensorline-backend/internal/config"
	"github.com/tensorline/tensorline-backend/internal/content"
	"github.com/tensorline/tensorline-backend/internal/db"
	"go.uber.org/zap"
)

const maxListLimit = 200

type Handler struct {
	fetcher   *content.Fetcher
	syncSvc   *content.SyncEngine
	lifecycle *content.Lifecycle
	cache     *cache.Cache
	store     db.Store
	config    *config.Config
	logger    *zap.SugaredLogger
}

func NewHandler(
	fetcher *content.Fetcher,
	syncSvc *content.SyncEngine,
	lifecycle *content.Lifecycle,
	c *cache.Cache,
	store db.Store,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		fetcher:   fetcher,
		syncSvc:   syncSvc,
		lifecycle: lifecycle,
		cache:     c,
		store:     store,
		config:    cfg,
		logger:    logger,
	}
}

// Public content endpoints

func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.contentType(w, r)
	if !ok {
		return
	}

	opts := content.ListOptions{
		Preview: r.URL.Query().Get("preview") == "true",
		OrderBy: r.URL.Query().Get("order"),
		Limit:   maxListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		if limit < maxListLimit {
			opts.Limit = limit
		}
	}

	items := h.fetcher.FetchList(r.Context(), typ, opts)
	rows := make([]db.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Fields)
	}

	h.writeJSON(w, http.StatusOK, ListDTO{Items: rows, Count: len(rows)})
}

func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.contentType(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	preview := r.URL.Query().Get("preview") == "true"

	key := contentCacheKey(typ, slug, preview)
	var dto ItemDTO
	err := h.cache.GetOrSet(r.Context(), key, cache.TTLLong, &dto, func(ctx context.Context) (any, error) {
		item, err := h.fetcher.FetchOne(ctx, typ, slug, content.FetchOptions{Preview: preview})
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, errContentNotFound
		}
		return ItemDTO{Fields: item.Fields, Relations: item.Relations}, nil
	})
	if err != nil {
		if errors.Is(err, errContentNotFound) {
			h.writeError(w, http.StatusNotFound, "CONTENT_NOT_FOUND", fmt.Sprintf("no %s with identifier %q", typ, slug))
			return
		}
		h.writeError(w, http.StatusInternalServerError, "CONTENT_FETCH_ERROR", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, dto)
}

// errContentNotFound keeps misses out of the cache: GetOrSet only stores
// successful fetches.
var errContentNotFound = errors.New("content not found")

// Admin endpoints

func (h *Handler) SyncRelationships(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.contentType(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	sets := make([]content.RelationshipSet, 0, len(req.Relationships))
	for kind, targetIDs := range req.Relationships {
		cfg, ok := content.RelationshipFor(typ, kind)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "UNKNOWN_RELATIONSHIP",
				fmt.Sprintf("type %s has no relationship kind %q", typ, kind))
			return
		}
		sets = append(sets, content.RelationshipSet{Config: cfg, TargetIDs: targetIDs})
	}

	results := h.syncSvc.Sync(r.Context(), id, sets)
	h.invalidateContent(r, typ)

	dto := SyncResponseDTO{Synced: make([]SyncKindDTO, 0, len(results))}
	status := http.StatusOK
	for _, res := range results {
		kind := SyncKindDTO{Kind: res.Kind}
		if res.Err != nil {
			kind.Error = res.Err.Error()
			status = http.StatusMultiStatus
		}
		dto.Synced = append(dto.Synced, kind)
	}

	h.writeJSON(w, status, dto)
}

func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.contentType(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	actor := r.Header.Get("X-Actor-Id")

	if r.URL.Query().Get("hard") == "true" {
		if err := h.lifecycle.HardDelete(r.Context(), typ, id); err != nil {
			h.writeError(w, http.StatusInternalServerError, "HARD_DELETE_ERROR", err.Error())
			return
		}
		h.invalidateContent(r, typ)
		h.writeJSON(w, http.StatusOK, DeleteResponseDTO{ID: id, Status: "hard_deleted"})
		return
	}

	if err := h.lifecycle.SoftDelete(r.Context(), typ, id, actor); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "CONTENT_NOT_FOUND", fmt.Sprintf("no %s with id %q", typ, id))
			return
		}
		h.writeError(w, http.StatusInternalServerError, "DELETE_ERROR", err.Error())
		return
	}

	h.invalidateContent(r, typ)
	h.writeJSON(w, http.StatusOK, DeleteResponseDTO{ID: id, Status: "deleted"})
}

func (h *Handler) RestoreContent(w http.ResponseWriter, r *http.Request) {
	typ, ok := h.contentType(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	actor := r.Header.Get("X-Actor-Id")

	row, err := h.lifecycle.Restore(r.Context(), typ, id, actor)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "CONTENT_NOT_FOUND", fmt.Sprintf("no %s with id %q", typ, id))
			return
		}
		h.writeError(w, http.StatusInternalServerError, "RESTORE_ERROR", err.Error())
		return
	}

	h.invalidateContent(r, typ)
	h.writeJSON(w, http.StatusOK, RestoreResponseDTO{ID: id, Status: "restored", Fields: row})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats(r.Context())
	h.writeJSON(w, http.StatusOK, CacheStatsDTO{
		MemoryEntries:     stats.MemoryEntries,
		MemoryMaxEntries:  stats.MemoryMaxEntries,
		DistributedActive: stats.DistributedActive,
	})
}

func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PATTERN", "pattern query parameter is required")
		return
	}

	removed := h.cache.DeletePattern(r.Context(), pattern)
	h.writeJSON(w, http.StatusOK, CacheInvalidateDTO{Pattern: pattern, Removed: removed})
}

// Health endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// Utility methods

func (h *Handler) contentType(w http.ResponseWriter, r *http.Request) (content.Type, bool) {
	name := chi.URLParam(r, "type")
	typ, ok := content.ParseType(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "UNKNOWN_CONTENT_TYPE",
			fmt.Sprintf("unknown content type %q, valid: %s", name, strings.Join(typeNames(), ", ")))
		return "", false
	}
	return typ, true
}

func typeNames() []string {
	types := content.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func contentCacheKey(typ content.Type, slug string, preview bool) string {
	mode := "live"
	if preview {
		mode = "preview"
	}
	return fmt.Sprintf("content:%s:%s:%s", typ, slug, mode)
}

// invalidateContent drops every cached entry for a type after a mutation.
func (h *Handler) invalidateContent(r *http.Request, typ content.Type) {
	removed := h.cache.DeletePattern(r.Context(), fmt.Sprintf("content:%s:*", typ))
	if removed > 0 {
		h.logger.Infow("Cache invalidated", "content_type", typ, "removed", removed)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := ErrorResponse{
		Code:    code,
		Message: message,
	}
	json.NewEncoder(w).Encode(err)
}
