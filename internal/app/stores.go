package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tictactoe/internal/config"
	"tictactoe/internal/db"
	"tictactoe/internal/domain"
	"tictactoe/internal/repository"
	"tictactoe/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Participants is the participant directory plus what the tooling needs to
// provision accounts.
type Participants interface {
	session.Directory
	GetByUsername(ctx context.Context, username string) (*domain.Participant, error)
	Create(ctx context.Context, p *domain.Participant) error
}

// GameStore is the store used by the coordinator, with a health probe.
type GameStore interface {
	session.GameStore
	Ping(ctx context.Context) error
}

// Stores bundles the backend chosen by DATABASE_URL.
type Stores struct {
	Games        GameStore
	Participants Participants

	closer func()
}

func (s *Stores) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// OpenStores connects to Postgres (applying pending migrations) or opens a
// SQLite file, depending on the configured driver.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		conn, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return SQLiteStores(conn), nil
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return PostgresStores(pool), nil
	}
}

func PostgresStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Games:        repository.NewGameRepository(pool),
		Participants: repository.NewUserRepository(pool),
		closer:       pool.Close,
	}
}

func SQLiteStores(conn *sql.DB) *Stores {
	return &Stores{
		Games:        repository.NewSQLiteGameRepository(conn),
		Participants: repository.NewSQLiteUserRepository(conn),
		closer:       func() { _ = conn.Close() },
	}
}

// EnsureParticipant returns the participant with username, creating it with
// displayName if it does not exist yet.
func EnsureParticipant(ctx context.Context, dir Participants, username, displayName string) (*domain.Participant, bool, error) {
	p, err := dir.GetByUsername(ctx, username)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	p = &domain.Participant{Username: username, DisplayName: displayName}
	if err := dir.Create(ctx, p); err != nil {
		return nil, false, fmt.Errorf("create participant %q: %w", username, err)
	}
	return p, true, nil
}
