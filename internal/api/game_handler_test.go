package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ericogr/chimera-arena/internal/broadcast"
	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/config"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/projection"
	"github.com/ericogr/chimera-arena/internal/service"
	"github.com/ericogr/chimera-arena/internal/storage"
)

const catalogYAML = `
cards:
  - name: Lion
    power: 5
    health: 10
  - name: Ox
    power: 3
    health: 10
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	cat, err := config.ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	hub := broadcast.NewHub(log)
	mgr := service.NewManager(storage.NewMemoryStore(), engine.NewMachine(log), hub, clk, log,
		service.RetryPolicy{Cap: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	queue := service.NewActionQueue(clk, 4, 0, log)
	driver := service.NewDriver(mgr, service.DriverConfig{InterTurnDelay: time.Second, MaxTurns: 50, StalemateRounds: 5}, log)
	svc := service.NewService(context.Background(), mgr, queue, driver, cat, log)

	r := gin.New()
	NewGameHandler(svc, hub, cat, nil).Register(r)
	return r
}

func do(r http.Handler, method, path, player string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if player != "" {
		req.Header.Set(constants.HeaderPlayerID, player)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) projection.View {
	t.Helper()
	var v projection.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createMatch(t *testing.T, r http.Handler) projection.View {
	t.Helper()
	w := do(r, http.MethodPost, "/api/matches", "alice", gin.H{
		"opponent":           "bob",
		"cards":              []string{"Lion"},
		"opponent_cards":     []string{"Ox"},
		"player1_goes_first": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeView(t, w)
}

func TestPublicEndpoints(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "", nil).Code)

	w := do(r, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)

	w = do(r, http.MethodGet, "/api/cards", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cards []game.CardDefinition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Len(t, cards, 2)
}

func TestPlayerHeaderRequired(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/matches", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), constants.ErrPlayerIDRequired)
}

func TestCreateAndReadMatch(t *testing.T) {
	r := newRouter(t)
	v := createMatch(t, r)
	assert.Equal(t, game.Side1, v.Viewer)
	assert.True(t, v.YourTurn)
	assert.True(t, v.Player2.Cards[0].Concealed)

	w := do(r, http.MethodGet, "/api/matches/"+v.MatchID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bob := decodeView(t, w)
	assert.Equal(t, game.Side2, bob.Viewer)
	assert.False(t, bob.YourTurn)
	assert.Equal(t, "Ox", bob.Player2.Cards[0].Name)
	assert.True(t, bob.Player1.Cards[0].Concealed)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/matches/nope", "bob", nil).Code)
}

func TestCreateMatchRejectsBadInput(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/matches", "alice", gin.H{"opponent": "bob", "cards": []string{"Lion"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/matches", "alice", gin.H{"opponent": "bob", "cards": []string{"Dragon"}, "opponent_cards": []string{"Ox"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown card")
}

func TestActionsFlow(t *testing.T) {
	r := newRouter(t)
	v := createMatch(t, r)
	path := fmt.Sprintf("/api/matches/%s/actions", v.MatchID)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, path, "mallory", gin.H{"kind": "attack"}).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, path, "bob", gin.H{"kind": "attack"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, path, "alice", gin.H{"kind": "attack", "payload": gin.H{"target": 7}}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, path, "alice", gin.H{"kind": "fly"}).Code)

	w := do(r, http.MethodPost, path, "alice", gin.H{"kind": "attack", "payload": gin.H{"target": 0}, "timestamp": time.Now()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after := decodeView(t, w)
	assert.Equal(t, int64(2), after.Version)
	assert.Equal(t, 5, after.Player2.Cards[0].Health)
	assert.False(t, after.YourTurn)

	w = do(r, http.MethodPost, path, "bob", gin.H{"kind": "getState"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeView(t, w).YourTurn)

	w = do(r, http.MethodPost, fmt.Sprintf("/api/matches/%s/end", v.MatchID), "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ended := decodeView(t, w)
	assert.Equal(t, game.WinnerDraw, ended.Winner)
	assert.Equal(t, game.EndReasonEndedByPlayer, ended.EndReason)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, path, "bob", gin.H{"kind": "attack"}).Code)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.ErrMatchNotFound, http.StatusNotFound, constants.ErrMatchNotFound},
		{service.ErrPlayerNotInMatch, http.StatusForbidden, constants.ErrPlayerNotInMatch},
		{fmt.Errorf("%w: 9", service.ErrInvalidTarget), http.StatusBadRequest, constants.ErrInvalidRequest},
		{service.ErrQueueFull, http.StatusTooManyRequests, constants.ErrTooManyActions},
		{fmt.Errorf("%w: %w", service.ErrRetriesExhausted, storage.ErrVersionConflict), http.StatusConflict, constants.ErrStateUpdatedByOther},
		{service.ErrMatchCorrupted, http.StatusConflict, constants.ErrMatchUnavailable},
		{service.ErrMatchCompleted, http.StatusConflict, service.ErrMatchCompleted.Error()},
		{errors.New("disk on fire"), http.StatusInternalServerError, constants.ErrFailedStoreAction},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			respondError(c, tc.err, constants.ErrFailedStoreAction)
			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body[constants.JSONKeyError])
		})
	}
}

func TestWebsocketReceivesUpdates(t *testing.T) {
	r := newRouter(t)
	v := createMatch(t, r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/matches/" + v.MatchID + "/ws"
	header := http.Header{}
	header.Set(constants.HeaderPlayerID, "bob")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	read := func() projection.View {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var out projection.View
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}
	initial := read()
	assert.Equal(t, int64(1), initial.Version)
	assert.Equal(t, game.Side2, initial.Viewer)

	w := do(r, http.MethodPost, "/api/matches/"+v.MatchID+"/actions", "alice", gin.H{"kind": "attack"})
	require.Equal(t, http.StatusOK, w.Code)

	update := read()
	assert.Equal(t, int64(2), update.Version)
	assert.Equal(t, 5, update.Player2.Cards[0].Health)
	assert.Equal(t, "Lion", update.Player1.Cards[0].Name)
}
