package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"tictactoe/internal/db"
	"tictactoe/internal/migrations"
	"tictactoe/internal/repository"
)

func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		runSQLite(path, *apply)
		return
	}

	if !*apply {
		list(migrations.Postgres)
		return
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
	if len(applied) == 0 {
		fmt.Println("nothing to apply")
	}
}

// SQLite schemas are applied on open.
func runSQLite(path string, apply bool) {
	if !apply {
		list(migrations.SQLite)
		return
	}
	conn, err := repository.OpenSQLite(path)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	fmt.Printf("schema ready at %s\n", path)
}

func list(d migrations.Dialect) {
	files, err := migrations.Files(d)
	if err != nil {
		log.Fatalf("read migrations: %v", err)
	}
	for _, name := range files {
		fmt.Println(name)
	}
}
