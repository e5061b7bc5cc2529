package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/photo-ingest/internal/pipeline"
)

// IngestHandler triggers pipeline runs over the web API.
type IngestHandler struct {
	pipeline    *pipeline.Pipeline
	concurrency int
}

func NewIngestHandler(pipe *pipeline.Pipeline, concurrency int) *IngestHandler {
	return &IngestHandler{
		pipeline:    pipe,
		concurrency: concurrency,
	}
}

type ingestRequest struct {
	FolderURL string `json:"folderUrl"`
}

type ingestResponse struct {
	Success        bool   `json:"success"`
	ProcessedCount int    `json:"processedCount"`
	Message        string `json:"message"`
}

// Ingest handles POST /api/v1/ingest. It runs the whole batch
// synchronously and reports the processed count.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.FolderURL) == "" {
		respondError(w, http.StatusBadRequest, "folderUrl is required")
		return
	}

	result, err := h.pipeline.Run(r.Context(), req.FolderURL, pipeline.Options{
		Concurrency: h.concurrency,
		Quiet:       true,
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidFolder):
			respondError(w, http.StatusBadRequest, "invalid folder reference")
		case errors.Is(err, pipeline.ErrNoImages):
			respondError(w, http.StatusNotFound, "no images found in folder")
		default:
			log.Printf("ingest failed for folder %s: %v", sanitizeForLog(req.FolderURL), err)
			respondError(w, http.StatusInternalServerError, "ingestion failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, ingestResponse{
		Success:        true,
		ProcessedCount: result.ProcessedCount,
		Message:        fmt.Sprintf("Processed %d images", result.ProcessedCount),
	})
}
