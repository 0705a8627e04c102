package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/auction/internal/auth"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/logger"
	"github.com/xtrntr/auction/internal/memdb"
	"github.com/xtrntr/auction/internal/models"
	"github.com/xtrntr/auction/internal/realtime"
)

// readEvent reads frames until one with the given event arrives
func readEvent(t *testing.T, conn *websocket.Conn, event string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env realtime.Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", event)
		if env.Event != event {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &m))
		return m
	}
}

func TestRouter_WebsocketSeesRESTBids(t *testing.T) {
	log := logger.Discard()
	store := memdb.New()
	hub := realtime.NewHub(log)
	pipeline := bidding.NewPipeline(store, bidding.NewValidator(time.Now), hub, log)
	reads := bidding.NewReconciler(store)
	authService := auth.NewAuthService(store, "test-secret", time.Hour)
	ws := realtime.NewServer(hub, authService, pipeline, reads, realtime.Options{}, log)

	handler := NewHandler(store, reads, pipeline, authService, log)
	ts := httptest.NewServer(handler.Router([]string{"*"}, ws))
	defer ts.Close()

	ctx := context.Background()
	user, err := authService.Register(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	token, err := authService.IssueToken(user)
	require.NoError(t, err)
	item, err := store.CreateItem(ctx, &models.Item{Name: "Brass Compass", StartingPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	join, err := json.Marshal(map[string]int{"itemId": item.ID})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(realtime.Envelope{Event: realtime.EventJoinItem, Data: join}))
	status := readEvent(t, conn, realtime.EventItemStatus)
	assert.Equal(t, "100", status["currentPrice"])

	body, err := json.Marshal(map[string]interface{}{"itemId": item.ID, "amount": "125.50"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/bids", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	event := readEvent(t, conn, realtime.EventNewBid)
	assert.Equal(t, "125.5", event["amount"])
	assert.Equal(t, "125.5", event["currentPrice"])
	assert.Equal(t, float64(1), event["bidCount"])
	assert.Equal(t, "alice", event["user"].(map[string]interface{})["username"])
}
