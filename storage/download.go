package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"loopbot/apperror"
)

// MaxUploadSize is the largest attachment the bot re-uploads to Discord.
const MaxUploadSize = 25 << 20

// File is an attachment held in memory for re-upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Downloader fetches an attachment so it can be posted as a file instead of a link.
type Downloader interface {
	Download(ctx context.Context, fileName, sourceURL string) (*File, error)
}

// HTTPDownloader reads attachments over HTTP up to a size limit.
type HTTPDownloader struct {
	http  *http.Client
	limit int64
}

func NewDownloader(timeout time.Duration, limit int64) *HTTPDownloader {
	if limit <= 0 {
		limit = MaxUploadSize
	}
	return &HTTPDownloader{http: &http.Client{Timeout: timeout}, limit: limit}
}

// Download returns the whole body of sourceURL. Bodies over the limit are rejected.
func (d *HTTPDownloader) Download(ctx context.Context, fileName, sourceURL string) (*File, error) {
	resp, err := fetch(ctx, d.http, sourceURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	tooLarge := apperror.External("attachment download", fmt.Errorf("%s is larger than %d bytes", fileName, d.limit))
	if resp.ContentLength > d.limit {
		return nil, tooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.limit+1))
	if err != nil {
		return nil, apperror.External("attachment download", err)
	}
	if int64(len(data)) > d.limit {
		return nil, tooLarge
	}
	return &File{Name: fileName, ContentType: contentTypeOf(resp, fileName), Data: data}, nil
}

func fetch(ctx context.Context, client *http.Client, sourceURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.External("attachment download", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperror.External("attachment download", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}

func contentTypeOf(resp *http.Response, fileName string) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
