package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
	"loopbot/model"
)

type fakePutter struct {
	bucket, object string
	body           []byte
	opts           minio.PutObjectOptions
	err            error
}

func (f *fakePutter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
	opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	f.bucket, f.object, f.opts = bucketName, objectName, opts
	f.body, _ = io.ReadAll(reader)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(f.body))}, nil
}

func TestMirrorAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF...."))
	}))
	defer srv.Close()

	putter := &fakePutter{}
	m := NewMirror(putter, "loops", time.Second)
	m.now = func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }

	name, err := m.MirrorAttachment(context.Background(), "alice", "Beat.WAV", srv.URL+"/beat.wav")
	require.NoError(t, err)
	assert.Regexp(t, `^submissions/alice/2025/03/[0-9a-f-]{36}\.wav$`, name)
	assert.Equal(t, "loops", putter.bucket)
	assert.Equal(t, "RIFF....", string(putter.body))
	assert.Equal(t, "audio/wav", putter.opts.ContentType)
	assert.Equal(t, "Beat.WAV", putter.opts.UserMetadata["original-filename"])
}

func TestMirrorAttachment_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	m := NewMirror(&fakePutter{}, "loops", time.Second)
	_, err := m.MirrorAttachment(context.Background(), "alice", "a.png", srv.URL+"/gone")
	assert.ErrorIs(t, err, apperror.ErrExternalService)

	m = NewMirror(&fakePutter{err: errors.New("access denied")}, "loops", time.Second)
	_, err = m.MirrorAttachment(context.Background(), "alice", "a.png", srv.URL+"/ok")
	assert.ErrorIs(t, err, apperror.ErrExternalService)
}

func TestNewMinIOMirror_Disabled(t *testing.T) {
	m, err := NewMinIOMirror(context.Background(), model.Integrations{}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, m)
}
