package repository

import (
	"context"
	"errors"

	"tictactoe/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository reads the participant directory. Accounts are created by
// the auth service; Create exists for dev tooling.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.Participant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, COALESCE(display_name, ''), created_at
		 FROM participants
		 WHERE id = $1`,
		id,
	)
	return scanParticipant(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.Participant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, COALESCE(display_name, ''), created_at
		 FROM participants
		 WHERE username = $1`,
		username,
	)
	return scanParticipant(row)
}

func (r *UserRepository) Create(ctx context.Context, p *domain.Participant) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO participants (username, display_name)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		p.Username,
		p.DisplayName,
	).Scan(&p.ID, &p.CreatedAt)
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var p domain.Participant
	if err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
