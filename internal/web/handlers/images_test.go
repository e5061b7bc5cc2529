package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/kozaktomas/photo-ingest/internal/store"
)

func testSigner() *store.Signer {
	return store.NewSigner("http://localhost:8080", "test-secret", time.Hour)
}

func seedRecords(st *fakeStore, ids ...string) {
	for _, id := range ids {
		st.records = append(st.records, &store.Record{ID: id, Labels: []string{"Beach"}})
		st.images[id] = []byte("bytes-" + id)
	}
}

func TestImagesList(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1", "img-2")
	st.records[1].Labels = []string{"Mountain"}
	handler := NewImagesHandler(st, testSigner())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Images []*store.Record `json:"images"`
		Total  int             `json:"total"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Total != 2 || len(resp.Images) != 2 {
		t.Errorf("expected 2 images, got total=%d len=%d", resp.Total, len(resp.Images))
	}
}

func TestImagesList_LabelFilter(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1", "img-2")
	st.records[1].Labels = []string{"Mountain"}
	handler := NewImagesHandler(st, testSigner())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images?label=mountain", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Images []*store.Record `json:"images"`
	}
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if len(resp.Images) != 1 || resp.Images[0].ID != "img-2" {
		t.Errorf("expected only img-2, got %v", resp.Images)
	}
}

func TestImagesList_StoreFailure(t *testing.T) {
	st := newFakeStore()
	st.listErr = errBoom
	handler := NewImagesHandler(st, testSigner())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder)
}

func TestImagesLabels(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1", "img-2")
	st.records[1].Labels = []string{"Mountain", "beach"}
	handler := NewImagesHandler(st, testSigner())

	recorder := httptest.NewRecorder()
	handler.Labels(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/images/labels", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Labels) != 2 {
		t.Errorf("expected 2 distinct labels, got %v", resp.Labels)
	}
}

func signedContentRequest(t *testing.T, signer *store.Signer, id string) *http.Request {
	t.Helper()
	locator := signer.Sign(id)
	u, err := url.Parse(locator)
	if err != nil {
		t.Fatalf("failed to parse locator: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, u.Path+"?"+u.RawQuery, nil)
	return requestWithChiParams(req, map[string]string{"id": id})
}

func TestImagesContent_ValidLocator(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1")
	signer := testSigner()
	handler := NewImagesHandler(st, signer)

	recorder := httptest.NewRecorder()
	handler.Content(recorder, signedContentRequest(t, signer, "img-1"))

	assertStatusCode(t, recorder, http.StatusOK)
	if recorder.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", recorder.Header().Get("Content-Type"))
	}
	if recorder.Body.String() != "bytes-img-1" {
		t.Errorf("unexpected body: %q", recorder.Body.String())
	}
}

func TestImagesContent_BadSignature(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1")
	handler := NewImagesHandler(st, testSigner())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/img-1/content?expires=9999999999&sig=forged", nil)
	req = requestWithChiParams(req, map[string]string{"id": "img-1"})

	recorder := httptest.NewRecorder()
	handler.Content(recorder, req)

	assertStatusCode(t, recorder, http.StatusForbidden)
	assertJSONError(t, recorder)
}

func TestImagesContent_MissingImage(t *testing.T) {
	signer := testSigner()
	handler := NewImagesHandler(newFakeStore(), signer)

	recorder := httptest.NewRecorder()
	handler.Content(recorder, signedContentRequest(t, signer, "img-404"))

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder)
}

func TestImagesRefresh(t *testing.T) {
	st := newFakeStore()
	seedRecords(st, "img-1", "img-2", "img-3")
	st.refreshErr["img-2"] = errBoom
	handler := NewImagesHandler(st, testSigner())

	recorder := httptest.NewRecorder()
	handler.Refresh(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/images/refresh", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Success      bool `json:"success"`
		RefreshCount int  `json:"refreshCount"`
		FailedCount  int  `json:"failedCount"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false with one failed refresh")
	}
	if resp.RefreshCount != 2 || resp.FailedCount != 1 {
		t.Errorf("expected 2 refreshed / 1 failed, got %d / %d", resp.RefreshCount, resp.FailedCount)
	}
	if len(st.refreshed) != 2 {
		t.Errorf("expected 2 refresh calls to succeed, got %v", st.refreshed)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}
