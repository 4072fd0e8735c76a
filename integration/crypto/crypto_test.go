package crypto

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
)

func TestMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin,solana", r.URL.Query().Get("ids"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","current_price":64123.5,"price_change_percentage_24h_in_currency":1.25,"image":"https://img.test/btc.png"},
			{"id":"solana","symbol":"sol","current_price":null,"price_change_percentage_24h_in_currency":-3.5}
		]`))
	}))
	defer srv.Close()

	coins, err := NewClient(time.Second, srv.URL).Markets(context.Background(), []string{"bitcoin", "solana"})
	require.NoError(t, err)
	require.Len(t, coins, 2)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	btc := coins[0].Embed(now)
	assert.Equal(t, "BTC — $64,123.50", btc.Title)
	assert.Equal(t, 0x2ecc71, btc.Color)
	assert.Contains(t, btc.Description, "📈 +1.25%")
	assert.Contains(t, btc.Description, "—")
	assert.Equal(t, "https://img.test/btc.png", btc.Thumbnail.URL)

	sol := coins[1].Embed(now)
	assert.Equal(t, "SOL — —", sol.Title)
	assert.Equal(t, 0xe74c3c, sol.Color)
	assert.Contains(t, sol.Description, "📉 -3.50%")
}

func TestMarkets_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second, srv.URL).Markets(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, apperror.ErrExternalService)
}

func TestLiveTickers_ReplaceAndStop(t *testing.T) {
	l := NewLiveTickers()
	var first, second atomic.Int32

	l.Start(context.Background(), "chan", 5*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return first.Load() > 0 }, time.Second, time.Millisecond)

	l.Start(context.Background(), "chan", 5*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return second.Load() > 0 }, time.Second, time.Millisecond)

	stopped := first.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, first.Load(), stopped+1, "replaced ticker stops within one interval")

	assert.True(t, l.Stop("chan"))
	assert.False(t, l.Running("chan"))
	assert.False(t, l.Stop("chan"))
	l.StopAll()
}

func TestLiveTickers_ParentCancel(t *testing.T) {
	l := NewLiveTickers()
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx, "chan", time.Millisecond, func(ctx context.Context) error { return nil })

	cancel()
	require.Eventually(t, func() bool { return !l.Running("chan") }, time.Second, time.Millisecond)
	l.StopAll()
}
