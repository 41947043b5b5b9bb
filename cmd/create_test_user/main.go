package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"tictactoe/internal/app"
	"tictactoe/internal/config"
	"tictactoe/internal/service"
)

func main() {
	username := flag.String("username", "testuser", "participant username")
	name := flag.String("name", "Tester", "display name")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET
	cfg := config.Load()
	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer stores.Close()

	p, created, err := app.EnsureParticipant(ctx, stores.Participants, *username, *name)
	if err != nil {
		log.Fatalf("ensure participant: %v", err)
	}
	if created {
		log.Printf("participant created id=%d\n", p.ID)
	} else {
		log.Printf("participant already exists id=%d\n", p.ID)
	}

	// verify read
	p2, err := stores.Participants.GetByID(ctx, p.ID)
	if err != nil {
		log.Fatalf("get by id failed: %v", err)
	}
	log.Printf("fetched participant id=%d username=%s name=%s created_at=%v\n", p2.ID, p2.Username, p2.Name(), p2.CreatedAt)

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	token, err := tokens.Generate(p2.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	fmt.Println(token)
}
