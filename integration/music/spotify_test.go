package music

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
)

func TestParseQuery(t *testing.T) {
	typ, q := ParseQuery("album kind of blue")
	assert.Equal(t, Album, typ)
	assert.Equal(t, "kind of blue", q)

	typ, q = ParseQuery("Windowlicker")
	assert.Equal(t, Track, typ)
	assert.Equal(t, "Windowlicker", q)
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "artist", r.URL.Query().Get("type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"artists":{"items":[{"name":"Aphex Twin","genres":["idm","ambient"],"external_urls":{"spotify":"https://open.spotify.com/artist/1"}}]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL+"/token", srv.URL+"/v1", time.Second)
	results, err := c.Search(context.Background(), Artist, "aphex")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Aphex Twin (Genres: idm, ambient) - https://open.spotify.com/artist/1", results[0].Line(Artist))
}

func TestSearch_Errors(t *testing.T) {
	c := NewClient("id", "secret", "http://127.0.0.1:1/token", "http://127.0.0.1:1/v1", 100*time.Millisecond)

	_, err := c.Search(context.Background(), Track, " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = c.Search(context.Background(), Track, "anything")
	assert.ErrorIs(t, err, apperror.ErrExternalService)
}
