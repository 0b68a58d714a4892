package titan_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/aggregator/titan"
	"github.com/dnavarro/cyclearb/internal/domain"
)

func TestSubscribeReceivesQuoteUpdate(t *testing.T) {
	upgrader := gorillaws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var frame map[string]any
		require.NoError(t, conn.ReadJSON(&frame))
		streamID := frame["streamId"].(string)

		require.NoError(t, conn.WriteJSON(map[string]any{
			"streamId":  streamID,
			"inAmount":  "1000000000",
			"outAmount": "140000000",
		}))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	auth := titan.NewAuthenticator(titan.HMACIssuer{Secret: []byte("shared-secret"), Subject: "engine", TTL: time.Minute}, 10*time.Second)
	c := titan.New("titan", wsURL, auth)

	pair := domain.TradePair{}
	ch, streamID, err := c.Subscribe(context.Background(), pair, 1_000_000_000, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, streamID)

	select {
	case update := <-ch:
		require.NoError(t, update.Err)
		require.Equal(t, uint64(1_000_000_000), update.Quote.AmountIn)
		require.Equal(t, uint64(140_000_000), update.Quote.AmountOut)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote update")
	}
}

func TestAuthenticatorCachesTokenUntilNearExpiry(t *testing.T) {
	issuer := &countingIssuer{}
	auth := titan.NewAuthenticator(issuer, 5*time.Second)

	tok1, err := auth.Token(context.Background())
	require.NoError(t, err)
	tok2, err := auth.Token(context.Background())
	require.NoError(t, err)

	require.Equal(t, tok1, tok2)
	require.Equal(t, 1, issuer.calls)
}

type countingIssuer struct {
	calls int
}

func (c *countingIssuer) Issue(ctx context.Context) (string, time.Time, error) {
	c.calls++
	return "token", time.Now().Add(time.Hour), nil
}
