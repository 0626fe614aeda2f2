package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deltacrown/bracket-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	CountTournaments(ctx context.Context, status *models.TournamentStatus) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, game_id, format, status, start_date, created_at
		FROM tournaments
		WHERE id = $1`
	var t models.Tournament
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.GameID, &t.Format, &t.Status, &t.StartDate, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) CountTournaments(ctx context.Context, status *models.TournamentStatus) (int, error) {
	query := `SELECT COUNT(*) FROM tournaments`
	args := make([]interface{}, 0, 1)
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
