package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ingest/internal/drive"
	"github.com/kozaktomas/photo-ingest/internal/store"
	"github.com/kozaktomas/photo-ingest/internal/vision"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d (body: %s)", expected, recorder.Code, recorder.Body.String())
	}
}

func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder) {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected non-empty error message")
	}
}

// fakeSource satisfies pipeline.Source for ingest handler tests.
type fakeSource struct {
	assets []drive.Asset
	err    error
}

func (f *fakeSource) FetchFolder(_ context.Context, _ string) ([]drive.Asset, error) {
	return f.assets, f.err
}

// fakeAnalyzer satisfies pipeline.Analyzer and always succeeds.
type fakeAnalyzer struct{}

func (f *fakeAnalyzer) InitFaceCollection(_ context.Context) error {
	return nil
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, _ string) (*vision.Analysis, error) {
	return &vision.Analysis{Labels: []string{"Beach"}}, nil
}

// fakeStore is an in-memory store.Store.
type fakeStore struct {
	mu         sync.Mutex
	records    []*store.Record
	images     map[string][]byte
	listErr    error
	putErr     error
	refreshErr map[string]error
	refreshed  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		images:     make(map[string][]byte),
		refreshErr: make(map[string]error),
	}
}

func (f *fakeStore) Put(_ context.Context, req store.PutRequest) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	record := &store.Record{ID: req.ID, Labels: req.Labels, Faces: req.Faces}
	f.records = append(f.records, record)
	f.images[req.ID] = req.Data
	return record, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]*store.Record(nil), f.records...), nil
}

func (f *fakeStore) RefreshLocator(_ context.Context, id string) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.refreshErr[id]; err != nil {
		return nil, err
	}
	f.refreshed = append(f.refreshed, id)
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetRecord(_ context.Context, id string) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetImage(_ context.Context, id string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.images[id]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, "image/jpeg", nil
}

var errBoom = errors.New("boom")
