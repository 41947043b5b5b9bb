package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tictactoe/internal/config"
	"tictactoe/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	app    *App
	srv    *httptest.Server
	tokens map[string]string
	ids    map[string]int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stores := SQLiteStores(conn)
	t.Cleanup(stores.Close)

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		APIRateLimit:   1000,
		APIRateWindow:  time.Minute,
		GameRateLimit:  1000,
		GameRateWindow: time.Minute,
		WSRateLimit:    1000,
		WSRateWindow:   time.Minute,
		ChatMaxLength:  500,
		RematchTTL:     time.Minute,
		AppVersion:     "test",
	}
	a, err := New(cfg, stores, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(a.Engine)
	t.Cleanup(func() {
		a.Shutdown()
		srv.Close()
	})

	e := &env{app: a, srv: srv, tokens: map[string]string{}, ids: map[string]int64{}}
	for _, name := range []string{"alice", "bob"} {
		p, _, err := EnsureParticipant(context.Background(), stores.Participants, name, strings.ToUpper(name[:1])+name[1:])
		if err != nil {
			t.Fatalf("participant %s: %v", name, err)
		}
		tok, err := a.Tokens.Generate(p.ID)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		e.tokens[name] = tok
		e.ids[name] = p.ID
	}
	return e
}

func (e *env) do(t *testing.T, method, path, who string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(method, e.srv.URL+path, nil)
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[who])
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(res.Body).Decode(&body)
	return res.StatusCode, body
}

func (e *env) dial(t *testing.T, who string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + e.tokens[who]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", who, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, _ := json.Marshal(map[string]any{"type": typ, "payload": payload})
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips frames until one of type typ satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("bad frame %s: %v", msg, err)
		}
		if f.Type == typ && (match == nil || match(f.Payload)) {
			return f.Payload
		}
	}
}

func gameStatus(raw json.RawMessage) (status, winner string) {
	var g struct {
		Status string `json:"status"`
		Winner string `json:"winner"`
	}
	_ = json.Unmarshal(raw, &g)
	return g.Status, g.Winner
}

func TestWSRejectsMissingOrBadToken(t *testing.T) {
	e := newEnv(t)
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"

	for _, u := range []string{url, url + "?token=garbage"} {
		_, res, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("dial %s succeeded; want 401", u)
		}
		if res == nil || res.StatusCode != http.StatusUnauthorized {
			t.Fatalf("dial %s: response %v; want 401", u, res)
		}
	}
}

func TestLobbyGameOverWebsocket(t *testing.T) {
	e := newEnv(t)

	a := e.dial(t, "alice")
	b := e.dial(t, "bob")
	readUntil(t, a, "online_count", func(p json.RawMessage) bool {
		return string(p) == `{"count":2}`
	})

	code, created := e.do(t, http.MethodPost, "/api/games", "alice")
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, created)
	}
	gameID := created["id"].(string)

	code, body := e.do(t, http.MethodGet, "/api/games?status=waiting", "bob")
	if code != http.StatusOK || len(body["games"].([]any)) != 1 {
		t.Fatalf("list open: %d %v", code, body)
	}

	code, joined := e.do(t, http.MethodPost, "/api/games/"+gameID+"/join", "bob")
	if code != http.StatusOK || joined["status"] != "in_progress" {
		t.Fatalf("join: %d %v", code, joined)
	}
	if code, _ := e.do(t, http.MethodPost, "/api/games/"+gameID+"/join", "alice"); code != http.StatusConflict {
		t.Fatalf("self join: %d; want 409", code)
	}

	send(t, a, "join_game", map[string]any{"gameId": gameID})
	readUntil(t, a, "game_state", nil)
	send(t, b, "join_game", map[string]any{"gameId": gameID})
	readUntil(t, b, "game_state", nil)
	readUntil(t, a, "game_update", nil)

	// O moving first is rejected to O only
	send(t, b, "make_move", map[string]any{"gameId": gameID, "index": 0})
	errPayload := readUntil(t, b, "game_error", nil)
	if !strings.Contains(string(errPayload), "Not your turn") {
		t.Fatalf("error payload = %s", errPayload)
	}

	moves := []struct {
		conn  *websocket.Conn
		index int
	}{
		{a, 0}, {b, 3}, {a, 1}, {b, 4}, {a, 2},
	}
	for i, m := range moves {
		send(t, m.conn, "make_move", map[string]any{"gameId": gameID, "index": m.index})
		// wait for the move to land before the next player acts
		want := fmt.Sprintf(`"version":%d`, 3+i)
		readUntil(t, a, "game_update", func(p json.RawMessage) bool {
			return strings.Contains(string(p), want)
		})
	}

	final := readUntil(t, b, "game_update", func(p json.RawMessage) bool {
		s, _ := gameStatus(p)
		return s == "finished"
	})
	if _, winner := gameStatus(final); winner != "X" {
		t.Fatalf("winner = %q; want X", winner)
	}

	send(t, b, "chat_message", map[string]any{"gameId": gameID, "text": " gg "})
	chat := readUntil(t, a, "chat_message", nil)
	var msg struct {
		Text       string `json:"text"`
		SenderName string `json:"senderName"`
	}
	_ = json.Unmarshal(chat, &msg)
	if msg.Text != "gg" || msg.SenderName != "Bob" {
		t.Fatalf("chat = %+v", msg)
	}

	send(t, a, "rematch_request", map[string]any{"gameId": gameID})
	readUntil(t, b, "rematch_request", nil)
	send(t, b, "rematch_response", map[string]any{"gameId": gameID, "accepted": true})
	started := readUntil(t, a, "rematch_started", nil)
	if !strings.Contains(string(started), `"oldGameId":"`+gameID+`"`) {
		t.Fatalf("rematch_started = %s", started)
	}
}

func TestMatchmakingOverHTTP(t *testing.T) {
	e := newEnv(t)
	a := e.dial(t, "alice")
	// registered once the first online_count arrives
	readUntil(t, a, "online_count", nil)

	code, body := e.do(t, http.MethodPost, "/api/matchmaking/join", "alice")
	if code != http.StatusOK || body["status"] != "waiting" {
		t.Fatalf("alice join: %d %v", code, body)
	}
	code, body = e.do(t, http.MethodPost, "/api/matchmaking/join", "bob")
	if code != http.StatusOK || body["status"] != "matched" {
		t.Fatalf("bob join: %d %v", code, body)
	}
	gameID := body["gameId"].(string)

	found := readUntil(t, a, "match_found", nil)
	if !strings.Contains(string(found), gameID) {
		t.Fatalf("match_found = %s; want game %s", found, gameID)
	}

	code, g := e.do(t, http.MethodGet, "/api/games/"+gameID, "alice")
	if code != http.StatusOK || g["status"] != "in_progress" {
		t.Fatalf("get matched game: %d %v", code, g)
	}
	players := g["players"].(map[string]any)
	if int64(players["x"].(float64)) != e.ids["alice"] {
		t.Fatalf("oldest waiter is not X: %v", players)
	}

	if code, _ := e.do(t, http.MethodDelete, "/api/matchmaking/leave", "alice"); code != http.StatusNoContent {
		t.Fatalf("leave: %d", code)
	}
}

func TestDisconnectDropsMatchmakingTicket(t *testing.T) {
	e := newEnv(t)
	a := e.dial(t, "alice")
	readUntil(t, a, "online_count", nil)

	if code, _ := e.do(t, http.MethodPost, "/api/matchmaking/join", "alice"); code != http.StatusOK {
		t.Fatalf("join: %d", code)
	}
	if !e.app.Queue.Waiting(e.ids["alice"]) {
		t.Fatalf("alice not queued")
	}

	_ = a.Close()
	deadline := time.Now().Add(3 * time.Second)
	for e.app.Queue.Waiting(e.ids["alice"]) {
		if time.Now().After(deadline) {
			t.Fatalf("ticket survived disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	code, body := e.do(t, http.MethodGet, "/api/online", "")
	if code != http.StatusOK || body["count"].(float64) != 0 {
		t.Fatalf("online: %d %v", code, body)
	}
}

func TestRESTErrorsAndHealth(t *testing.T) {
	e := newEnv(t)

	if code, _ := e.do(t, http.MethodPost, "/api/games", ""); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, "/api/games/missing", "alice"); code != http.StatusNotFound {
		t.Fatalf("missing game: %d", code)
	}
	if code, _ := e.do(t, http.MethodGet, "/api/games?status=finished", "alice"); code != http.StatusBadRequest {
		t.Fatalf("unsupported status filter: %d", code)
	}
	for _, p := range []string{"/health", "/healthz", "/readyz"} {
		if code, body := e.do(t, http.MethodGet, p, ""); code != http.StatusOK {
			t.Fatalf("%s: %d %v", p, code, body)
		}
	}
	if code, _ := e.do(t, http.MethodGet, "/metrics", ""); code != http.StatusOK {
		t.Fatalf("metrics: %d", code)
	}
}
