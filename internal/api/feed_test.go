package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, f *fixture, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/auction?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestAuctionFeed_Streams(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Unix() - 302400
	conn, _, err := dialFeed(t, f, fmt.Sprintf("start=%d&duration=604800&max=100&min=50&curve=linear&interval=5ms", start))
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var tick PriceTick
		require.NoError(t, conn.ReadJSON(&tick))
		assert.Equal(t, fixedNow.Unix(), tick.Now)
		assert.Equal(t, "75", tick.Price)
		assert.Equal(t, "75000000000000000000", tick.Raw)
		assert.False(t, tick.Settled)
	}
}

func TestAuctionFeed_ClosesWhenSettled(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Unix() - 1000
	conn, _, err := dialFeed(t, f, fmt.Sprintf("start=%d&duration=100&max=100&min=50&curve=parabolic", start))
	require.NoError(t, err)
	defer conn.Close()

	var tick PriceTick
	require.NoError(t, conn.ReadJSON(&tick))
	assert.True(t, tick.Settled)
	assert.Equal(t, "50", tick.Price)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestAuctionFeed_RejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{
		"start=0&duration=0&max=100&min=50",
		"start=0&duration=10&max=50&min=100",
		"start=x&duration=10&max=100&min=50",
		"start=0&duration=10&max=100&min=50&curve=cubic",
		"start=0&duration=10&max=100&min=50&interval=1us",
	} {
		_, resp, err := dialFeed(t, f, q)
		require.Error(t, err, q)
		require.NotNil(t, resp, q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}
