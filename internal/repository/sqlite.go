package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tictactoe/internal/domain"
	"tictactoe/internal/migrations"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite database and applies the embedded
// schema. ":memory:" gives a private in-process database.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	files, err := migrations.Files(migrations.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	for _, name := range files {
		stmt, err := migrations.Read(name)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return db, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// encodeBoard stores the board as 9 characters, '.' for an empty cell.
func encodeBoard(b domain.Board) string {
	var sb strings.Builder
	for _, m := range b {
		if m == domain.MarkNone {
			sb.WriteByte('.')
			continue
		}
		sb.WriteString(string(m))
	}
	return sb.String()
}

func decodeBoard(s string) domain.Board {
	board := make(domain.Board, len(s))
	for i, r := range s {
		if r != '.' {
			board[i] = domain.Mark(string(r))
		}
	}
	return board
}

// SQLiteGameRepository is the Game Store on SQLite, used for local
// development and in tests.
type SQLiteGameRepository struct {
	db *sql.DB
}

func NewSQLiteGameRepository(db *sql.DB) *SQLiteGameRepository {
	return &SQLiteGameRepository{db: db}
}

func (r *SQLiteGameRepository) Create(ctx context.Context, g *domain.Game) error {
	if g.Players.X == nil {
		return errors.New("game: slot X is required")
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO games (id, player_x, player_o, board, current_turn, status, winner, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		g.ID,
		*g.Players.X,
		g.Players.O,
		encodeBoard(g.Board),
		string(g.CurrentTurn),
		string(g.Status),
		nullableOutcome(g.Winner),
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return err
	}

	g.Version = 1
	g.CreatedAt = fromMillis(toMillis(now))
	g.UpdatedAt = g.CreatedAt
	return nil
}

func (r *SQLiteGameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`,
		id,
	)
	g, err := scanSQLiteGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (r *SQLiteGameRepository) Save(ctx context.Context, g *domain.Game) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE games
		 SET player_o = ?, board = ?, current_turn = ?, status = ?, winner = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		g.Players.O,
		encodeBoard(g.Board),
		string(g.CurrentTurn),
		string(g.Status),
		nullableOutcome(g.Winner),
		toMillis(now),
		g.ID,
		g.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, g.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrConflict
	}

	g.Version++
	g.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

func (r *SQLiteGameRepository) ListOpen(ctx context.Context, limit int) ([]*domain.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gameColumns+`
		 FROM games
		 WHERE status = 'waiting'
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Game
	for rows.Next() {
		g, err := scanSQLiteGame(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r *SQLiteGameRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteGame(row sqlScanner) (*domain.Game, error) {
	var (
		g         domain.Game
		x         int64
		o         sql.NullInt64
		board     string
		turn      string
		status    string
		winner    sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&g.ID, &x, &o, &board, &turn, &status, &winner, &g.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	g.Players.X = &x
	if o.Valid {
		v := o.Int64
		g.Players.O = &v
	}
	g.Board = decodeBoard(board)
	g.CurrentTurn = domain.Mark(turn)
	g.Status = domain.GameStatus(status)
	if winner.Valid {
		g.Winner = domain.Outcome(winner.String)
	}
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return &g, nil
}

// SQLiteUserRepository is the participant directory on SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*domain.Participant, error) {
	return scanSQLiteParticipant(r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, created_at FROM participants WHERE id = ?`,
		id,
	))
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*domain.Participant, error) {
	return scanSQLiteParticipant(r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, created_at FROM participants WHERE username = ?`,
		username,
	))
}

func scanSQLiteParticipant(row sqlScanner) (*domain.Participant, error) {
	var (
		p         domain.Participant
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

func (r *SQLiteUserRepository) Create(ctx context.Context, p *domain.Participant) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO participants (username, display_name, created_at) VALUES (?, ?, ?)`,
		p.Username,
		p.DisplayName,
		toMillis(now),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = fromMillis(toMillis(now))
	return nil
}
