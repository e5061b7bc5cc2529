package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-ingest/internal/gallery"
	"github.com/kozaktomas/photo-ingest/internal/store"
)

// refreshConcurrency caps the parallel locator rewrites during a
// refresh fan-out.
const refreshConcurrency = 8

// ImagesHandler serves stored records and their image content.
type ImagesHandler struct {
	store  store.Store
	signer *store.Signer
}

func NewImagesHandler(st store.Store, signer *store.Signer) *ImagesHandler {
	return &ImagesHandler{
		store:  st,
		signer: signer,
	}
}

type listResponse struct {
	Images []*store.Record `json:"images"`
	Total  int             `json:"total"`
}

// List handles GET /api/v1/images. An optional ?label= query filters
// case- and diacritic-insensitively.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		log.Printf("failed to list records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	records = gallery.FilterByLabel(records, r.URL.Query().Get("label"))
	gallery.SortByUploadTime(records)

	respondJSON(w, http.StatusOK, listResponse{
		Images: records,
		Total:  len(records),
	})
}

// Labels handles GET /api/v1/images/labels and returns the distinct
// labels across all stored records.
func (h *ImagesHandler) Labels(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		log.Printf("failed to list records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list labels")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"labels": gallery.Labels(records),
	})
}

// Content handles GET /api/v1/images/{id}/content. Access requires a
// valid, unexpired locator signature.
func (h *ImagesHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	if err := h.signer.Verify(id, query.Get("expires"), query.Get("sig")); err != nil {
		if errors.Is(err, store.ErrLocatorExpired) {
			respondError(w, http.StatusForbidden, "locator expired")
		} else {
			respondError(w, http.StatusForbidden, "invalid locator")
		}
		return
	}

	data, mimeType, err := h.store.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			respondError(w, http.StatusNotFound, "image not found")
		} else {
			log.Printf("failed to read image %s: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to read image")
		}
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type refreshResponse struct {
	Success      bool `json:"success"`
	RefreshCount int  `json:"refreshCount"`
	FailedCount  int  `json:"failedCount"`
}

// Refresh handles POST /api/v1/images/refresh. Every record gets a new
// locator; individual failures are counted, not fatal.
func (h *ImagesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		log.Printf("failed to list records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	var group errgroup.Group
	group.SetLimit(refreshConcurrency)

	failed := make(chan string, len(records))
	for _, record := range records {
		group.Go(func() error {
			if _, err := h.store.RefreshLocator(r.Context(), record.ID); err != nil {
				log.Printf("failed to refresh locator for %s: %v", record.ID, err)
				failed <- record.ID
			}
			return nil
		})
	}
	group.Wait()
	close(failed)

	failedCount := len(failed)
	respondJSON(w, http.StatusOK, refreshResponse{
		Success:      failedCount == 0,
		RefreshCount: len(records) - failedCount,
		FailedCount:  failedCount,
	})
}
