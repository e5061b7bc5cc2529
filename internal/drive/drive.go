// Package drive is a client for the Google Drive v3 REST API, scoped to
// what ingestion needs: resolving a shared folder reference, walking its
// tree and downloading image files.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

const defaultBaseURL = "https://www.googleapis.com/drive/v3"

// folderMimeType is the Drive type tag for folders.
const folderMimeType = "application/vnd.google-apps.folder"

// ErrInvalidFolderRef indicates the folder reference is not a Drive folder
// URL or a bare folder ID.
var ErrInvalidFolderRef = errors.New("invalid Drive folder reference")

// Client talks to the Drive API using an API key, which is sufficient for
// publicly shared folders.
type Client struct {
	apiKey    string
	parsedURL *url.URL
}

// NewClient creates a Drive client against the public API endpoint.
func NewClient(apiKey string) *Client {
	c, _ := NewClientWithBaseURL(apiKey, defaultBaseURL)
	return c
}

// NewClientWithBaseURL creates a Drive client against a custom endpoint.
// Used by tests to point at a mock server.
func NewClientWithBaseURL(apiKey, rawURL string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Drive API URL: %w", err)
	}
	return &Client{apiKey: apiKey, parsedURL: parsed}, nil
}

// resolveURL builds a full URL from the base API URL, path segments and
// query values. The API key is always appended.
func (c *Client) resolveURL(query url.Values, pathSegments ...string) string {
	result := c.parsedURL.JoinPath(pathSegments...)
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	result.RawQuery = query.Encode()
	return result.String()
}

// doGetJSON performs a GET request and unmarshals the JSON response into
// the result type.
func doGetJSON[T any](ctx context.Context, requestURL string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}

// readErrorBody reads the response body for error messages.
// Returns a placeholder if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

var folderRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`folders/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),
}

var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ExtractFolderID resolves a folder reference to a Drive folder ID.
// Accepted forms:
//   - https://drive.google.com/drive/folders/FOLDER_ID
//   - https://drive.google.com/drive/folders/FOLDER_ID?usp=sharing
//   - https://drive.google.com/open?id=FOLDER_ID
//   - a bare folder ID
func ExtractFolderID(ref string) (string, error) {
	for _, pattern := range folderRefPatterns {
		if match := pattern.FindStringSubmatch(ref); match != nil {
			return match[1], nil
		}
	}
	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFolderRef, ref)
}

// VerifyFolderAccess reports whether the folder reference resolves and the
// folder is readable with the configured API key.
func (c *Client) VerifyFolderAccess(ctx context.Context, folderRef string) bool {
	folderID, err := ExtractFolderID(folderRef)
	if err != nil {
		return false
	}

	query := url.Values{}
	query.Set("fields", "id,name")
	_, err = doGetJSON[driveFile](ctx, c.resolveURL(query, "files", folderID))
	return err == nil
}
