package drive

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-ingest/internal/constants"
)

// Asset is one image pulled out of a Drive folder: its bytes plus the
// provenance the rest of the pipeline needs.
type Asset struct {
	Name     string
	Data     []byte
	MimeType string
	Size     int64 // size declared by Drive; 0 when Drive omits it
}

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size,omitempty"`
}

type fileListResponse struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// listImages walks the folder tree rooted at folderID and returns every
// image file in it. The walk uses an explicit worklist instead of
// recursion, so arbitrarily deep trees cannot grow the stack. Order across
// folders is unspecified.
func (c *Client) listImages(ctx context.Context, folderID string) ([]driveFile, error) {
	var images []driveFile
	foldersToProcess := []string{folderID}

	for len(foldersToProcess) > 0 {
		current := foldersToProcess[len(foldersToProcess)-1]
		foldersToProcess = foldersToProcess[:len(foldersToProcess)-1]

		pageToken := ""
		for {
			query := url.Values{}
			query.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", current))
			query.Set("fields", "files(id,name,mimeType,size),nextPageToken")
			query.Set("pageSize", strconv.Itoa(constants.DrivePageSize))
			if pageToken != "" {
				query.Set("pageToken", pageToken)
			}

			// A listing failure makes the folder unreadable as a whole,
			// unlike a single file download failure.
			page, err := doGetJSON[fileListResponse](ctx, c.resolveURL(query, "files"))
			if err != nil {
				return nil, fmt.Errorf("failed to access folder %s: %w", current, err)
			}

			for _, f := range page.Files {
				switch {
				case f.MimeType == folderMimeType:
					foldersToProcess = append(foldersToProcess, f.ID)
				case isImageMime(f.MimeType):
					images = append(images, f)
				}
			}

			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}
	}

	return images, nil
}

func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// download fetches the raw content of a single file.
func (c *Client) download(ctx context.Context, fileID string) ([]byte, error) {
	query := url.Values{}
	query.Set("alt", "media")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(query, "files", fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	return io.ReadAll(resp.Body)
}

// FetchFolder resolves the folder reference, lists every image under it and
// downloads each one. A failed download skips that file with a warning and
// never aborts its siblings; each asset appears exactly once.
func (c *Client) FetchFolder(ctx context.Context, folderRef string) ([]Asset, error) {
	folderID, err := ExtractFolderID(folderRef)
	if err != nil {
		return nil, err
	}

	files, err := c.listImages(ctx, folderID)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, 0, len(files))
	for _, f := range files {
		data, err := c.download(ctx, f.ID)
		if err != nil {
			log.Printf("Warning: failed to download %s: %v", f.Name, err)
			continue
		}

		size, _ := strconv.ParseInt(f.Size, 10, 64)
		assets = append(assets, Asset{
			Name:     f.Name,
			Data:     data,
			MimeType: f.MimeType,
			Size:     size,
		})
	}

	return assets, nil
}
