package repository

import (
	"context"
	"errors"
	"time"

	"tictactoe/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const gameColumns = `id, player_x, player_o, board, current_turn, status, winner, version, created_at, updated_at`

type GameRepository struct {
	db *pgxpool.Pool
}

func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts g and fills in Version and the timestamps.
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) error {
	if g.Players.X == nil {
		return errors.New("game: slot X is required")
	}

	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO games (id, player_x, player_o, board, current_turn, status, winner, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		 RETURNING created_at`,
		g.ID,
		*g.Players.X,
		g.Players.O,
		g.Board.Strings(),
		string(g.CurrentTurn),
		string(g.Status),
		nullableOutcome(g.Winner),
	).Scan(&createdAt)
	if err != nil {
		return err
	}

	g.Version = 1
	g.CreatedAt = createdAt
	g.UpdatedAt = createdAt
	return nil
}

func (r *GameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`,
		id,
	)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// Save writes g only if the stored version still equals g.Version.
// On success g.Version is advanced; otherwise ErrConflict or ErrNotFound.
func (r *GameRepository) Save(ctx context.Context, g *domain.Game) error {
	var (
		version   int64
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx,
		`UPDATE games
		 SET player_o = $3, board = $4, current_turn = $5, status = $6, winner = $7,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		g.ID,
		g.Version,
		g.Players.O,
		g.Board.Strings(),
		string(g.CurrentTurn),
		string(g.Status),
		nullableOutcome(g.Winner),
	).Scan(&version, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, g.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	if err != nil {
		return err
	}

	g.Version = version
	g.UpdatedAt = updatedAt
	return nil
}

// ListOpen returns waiting games, newest first.
func (r *GameRepository) ListOpen(ctx context.Context, limit int) ([]*domain.Game, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+gameColumns+`
		 FROM games
		 WHERE status = 'waiting'
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r *GameRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g      domain.Game
		x      int64
		o      *int64
		board  []string
		turn   string
		status string
		winner *string
	)
	if err := row.Scan(&g.ID, &x, &o, &board, &turn, &status, &winner, &g.Version, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}

	g.Players = domain.Players{X: &x, O: o}
	g.Board = domain.BoardFromStrings(board)
	g.CurrentTurn = domain.Mark(turn)
	g.Status = domain.GameStatus(status)
	if winner != nil {
		g.Winner = domain.Outcome(*winner)
	}
	return &g, nil
}

func nullableOutcome(o domain.Outcome) *string {
	if o == domain.OutcomeNone {
		return nil
	}
	s := string(o)
	return &s
}
