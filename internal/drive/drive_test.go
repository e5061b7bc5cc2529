package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
)

// mockDrive serves a fake Drive folder tree.
type mockDrive struct {
	// children maps a folder ID to the files/folders it contains
	children map[string][]driveFile
	// content maps a file ID to its bytes
	content map[string][]byte
	// failDownloads contains file IDs whose download should return 500
	failDownloads map[string]bool
}

var parentQueryPattern = regexp.MustCompile(`'([^']+)' in parents`)

func newMockDriveServer(t *testing.T, m *mockDrive) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		match := parentQueryPattern.FindStringSubmatch(r.URL.Query().Get("q"))
		if match == nil {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		files, ok := m.children[match[1]]
		if !ok {
			http.Error(w, "folder not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(fileListResponse{Files: files})
	})

	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		if r.URL.Query().Get("alt") == "media" {
			if m.failDownloads[id] {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			data, ok := m.content[id]
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			w.Write(data)
			return
		}
		// Metadata request (VerifyFolderAccess).
		if _, ok := m.children[id]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(driveFile{ID: id, Name: "folder"})
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := NewClientWithBaseURL("test-key", server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestExtractFolderID(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		expected string
		wantErr  bool
	}{
		{"folders URL", "https://drive.google.com/drive/folders/abc123XYZ", "abc123XYZ", false},
		{"folders URL with sharing suffix", "https://drive.google.com/drive/folders/a-b_c?usp=sharing", "a-b_c", false},
		{"open URL with id param", "https://drive.google.com/open?id=xyz789", "xyz789", false},
		{"bare ID", "1AbC-dEf_2", "1AbC-dEf_2", false},
		{"garbage", "not a folder!", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ExtractFolderID(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFolderRef) {
					t.Errorf("expected ErrInvalidFolderRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("expected ID %q, got %q", tt.expected, id)
			}
		})
	}
}

func TestFetchFolder_TraversalCompleteness(t *testing.T) {
	// root -> {a.jpg, sub1 -> {b.png, sub2 -> {c.webp}}, ignored.txt}
	m := &mockDrive{
		children: map[string][]driveFile{
			"root": {
				{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg", Size: "3"},
				{ID: "sub1", Name: "sub1", MimeType: folderMimeType},
				{ID: "f4", Name: "ignored.txt", MimeType: "text/plain"},
			},
			"sub1": {
				{ID: "f2", Name: "b.png", MimeType: "image/png"},
				{ID: "sub2", Name: "sub2", MimeType: folderMimeType},
			},
			"sub2": {
				{ID: "f3", Name: "c.webp", MimeType: "image/webp"},
			},
		},
		content: map[string][]byte{
			"f1": []byte("jpg"),
			"f2": []byte("png"),
			"f3": []byte("webp"),
		},
	}
	server := newMockDriveServer(t, m)
	defer server.Close()

	assets, err := newTestClient(t, server).FetchFolder(context.Background(), "root")
	if err != nil {
		t.Fatalf("FetchFolder failed: %v", err)
	}

	if len(assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(assets))
	}

	seen := make(map[string]Asset)
	for _, a := range assets {
		if _, dup := seen[a.Name]; dup {
			t.Errorf("asset %q returned more than once", a.Name)
		}
		seen[a.Name] = a
	}
	for _, name := range []string{"a.jpg", "b.png", "c.webp"} {
		if _, ok := seen[name]; !ok {
			t.Errorf("missing asset %q", name)
		}
	}
	if seen["a.jpg"].Size != 3 {
		t.Errorf("expected declared size 3 for a.jpg, got %d", seen["a.jpg"].Size)
	}
	if string(seen["b.png"].Data) != "png" {
		t.Errorf("unexpected data for b.png: %q", seen["b.png"].Data)
	}
}

func TestFetchFolder_DownloadFailureSkipsSiblings(t *testing.T) {
	m := &mockDrive{
		children: map[string][]driveFile{
			"root": {
				{ID: "f1", Name: "ok1.jpg", MimeType: "image/jpeg"},
				{ID: "f2", Name: "broken.jpg", MimeType: "image/jpeg"},
				{ID: "f3", Name: "ok2.jpg", MimeType: "image/jpeg"},
			},
		},
		content: map[string][]byte{
			"f1": []byte("one"),
			"f3": []byte("two"),
		},
		failDownloads: map[string]bool{"f2": true},
	}
	server := newMockDriveServer(t, m)
	defer server.Close()

	assets, err := newTestClient(t, server).FetchFolder(context.Background(), "root")
	if err != nil {
		t.Fatalf("FetchFolder failed: %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("expected 2 assets after one failed download, got %d", len(assets))
	}
	for _, a := range assets {
		if a.Name == "broken.jpg" {
			t.Error("failed download should have been skipped")
		}
	}
}

func TestFetchFolder_ListingFailureIsFatal(t *testing.T) {
	m := &mockDrive{children: map[string][]driveFile{}}
	server := newMockDriveServer(t, m)
	defer server.Close()

	_, err := newTestClient(t, server).FetchFolder(context.Background(), "missing-folder")
	if err == nil {
		t.Fatal("expected error for unreadable root folder")
	}
}

func TestFetchFolder_InvalidReference(t *testing.T) {
	server := newMockDriveServer(t, &mockDrive{})
	defer server.Close()

	_, err := newTestClient(t, server).FetchFolder(context.Background(), "!!!")
	if !errors.Is(err, ErrInvalidFolderRef) {
		t.Errorf("expected ErrInvalidFolderRef, got %v", err)
	}
}

func TestVerifyFolderAccess(t *testing.T) {
	m := &mockDrive{
		children: map[string][]driveFile{"root": {}},
	}
	server := newMockDriveServer(t, m)
	defer server.Close()

	client := newTestClient(t, server)

	if !client.VerifyFolderAccess(context.Background(), "root") {
		t.Error("expected access to readable folder")
	}
	if client.VerifyFolderAccess(context.Background(), "nope") {
		t.Error("expected no access to unknown folder")
	}
	if client.VerifyFolderAccess(context.Background(), "!!!") {
		t.Error("expected no access for invalid reference")
	}
}
