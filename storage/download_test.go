package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("PNG"))
		case "/big.wav":
			w.Write([]byte(strings.Repeat("x", 64)))
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte("data"))
		}
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 32)
	ctx := context.Background()

	f, err := d.Download(ctx, "sketch.png", srv.URL+"/typed.png")
	require.NoError(t, err)
	assert.Equal(t, "sketch.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, "PNG", string(f.Data))

	_, err = d.Download(ctx, "loop.wav", srv.URL+"/big.wav")
	assert.ErrorIs(t, err, apperror.ErrExternalService)

	_, err = d.Download(ctx, "a.png", srv.URL+"/gone")
	assert.ErrorIs(t, err, apperror.ErrExternalService)
}

func TestNewDownloader_DefaultLimit(t *testing.T) {
	assert.Equal(t, int64(MaxUploadSize), NewDownloader(time.Second, 0).limit)
}
