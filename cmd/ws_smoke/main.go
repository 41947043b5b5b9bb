// ws_smoke plays one game against a running server: two participants meet
// through matchmaking, open sockets and X wins along the top row.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"tictactoe/internal/app"
	"tictactoe/internal/config"
	"tictactoe/internal/service"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer stores.Close()

	uA, _, err := app.EnsureParticipant(ctx, stores.Participants, "smokeA", "A")
	if err != nil {
		log.Fatalf("participant A: %v", err)
	}
	uB, _, err := app.EnsureParticipant(ctx, stores.Participants, "smokeB", "B")
	if err != nil {
		log.Fatalf("participant B: %v", err)
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	tokenA, err := tokens.Generate(uA.ID)
	if err != nil {
		log.Fatalf("gen token A: %v", err)
	}
	tokenB, err := tokens.Generate(uB.ID)
	if err != nil {
		log.Fatalf("gen token B: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("http://%s:%s", *host, cfg.AppPort)
	wsBase := fmt.Sprintf("ws://%s:%s/ws?token=", *host, cfg.AppPort)

	connA, _, err := websocket.DefaultDialer.Dial(wsBase+tokenA, nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	connB, _, err := websocket.DefaultDialer.Dial(wsBase+tokenB, nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	if res := joinQueue(base, tokenA); res.Status != "waiting" {
		log.Fatalf("A expected waiting, got %q", res.Status)
	}
	res := joinQueue(base, tokenB)
	if res.Status != "matched" {
		log.Fatalf("B expected matched, got %q", res.Status)
	}
	gameID := res.GameID
	log.Printf("matched game=%s", gameID)

	send(connA, "join_game", map[string]any{"gameId": gameID})
	send(connB, "join_game", map[string]any{"gameId": gameID})

	// X (A) takes the top row while O (B) plays the middle row
	moves := []struct {
		conn  *websocket.Conn
		index int
	}{
		{connA, 0}, {connB, 3}, {connA, 1}, {connB, 4}, {connA, 2},
	}
	for _, m := range moves {
		send(m.conn, "make_move", map[string]any{"gameId": gameID, "index": m.index})
		time.Sleep(100 * time.Millisecond)
	}

	finished := waitFinished(connB, 3*time.Second)
	if finished == "" {
		log.Fatal("no finished game_update seen")
	}
	log.Printf("B got final state: %s", finished)
	log.Println("smoke test finished")
}

func joinQueue(base, token string) struct {
	Status string `json:"status"`
	GameID string `json:"gameId"`
} {
	var out struct {
		Status string `json:"status"`
		GameID string `json:"gameId"`
	}
	req, err := http.NewRequest(http.MethodPost, base+"/api/matchmaking/join", nil)
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("matchmaking join: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("matchmaking join: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("decode matchmaking: %v", err)
	}
	return out
}

func send(conn *websocket.Conn, typ string, payload any) {
	b, _ := json.Marshal(map[string]any{"type": typ, "payload": payload})
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Fatalf("write %s: %v", typ, err)
	}
}

func waitFinished(conn *websocket.Conn, d time.Duration) string {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return ""
		}
		var f frame
		if json.Unmarshal(msg, &f) != nil || f.Type != "game_update" {
			continue
		}
		var g struct {
			Status string `json:"status"`
		}
		if json.Unmarshal(f.Payload, &g) == nil && g.Status == "finished" {
			return string(f.Payload)
		}
	}
	return ""
}
