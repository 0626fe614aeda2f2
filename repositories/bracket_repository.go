package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deltacrown/bracket-engine/models"
)

var ErrBracketNotFound = errors.New("bracket not found")

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByTournamentID(ctx context.Context, tournamentID int) (*models.Bracket, error)
	SetFinalized(ctx context.Context, exec SQLExecutor, bracketID int, finalized bool) error
	DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error
	CountBrackets(ctx context.Context, finalized *bool) (int, error)
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	if bracket.CreatedAt.IsZero() {
		bracket.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO brackets (tournament_id, format, rounds, finalized, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := exec.QueryRowContext(ctx, query,
		bracket.TournamentID, bracket.Format, bracket.Rounds, bracket.Finalized, bracket.CreatedAt,
	).Scan(&bracket.ID)
	if err != nil {
		return fmt.Errorf("failed to create bracket for tournament %d: %w", bracket.TournamentID, err)
	}
	return nil
}

func (r *postgresBracketRepository) GetByTournamentID(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	query := `
		SELECT id, tournament_id, format, rounds, finalized, created_at
		FROM brackets
		WHERE tournament_id = $1`
	var b models.Bracket
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(
		&b.ID, &b.TournamentID, &b.Format, &b.Rounds, &b.Finalized, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket for tournament %d: %w", tournamentID, err)
	}
	return &b, nil
}

func (r *postgresBracketRepository) SetFinalized(ctx context.Context, exec SQLExecutor, bracketID int, finalized bool) error {
	result, err := exec.ExecContext(ctx, `UPDATE brackets SET finalized = $1 WHERE id = $2`, finalized, bracketID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

// DeleteByTournamentID removes the bracket row; match rows cascade via the
// matches.bracket_id foreign key.
func (r *postgresBracketRepository) DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM brackets WHERE tournament_id = $1`, tournamentID)
	return err
}

func (r *postgresBracketRepository) CountBrackets(ctx context.Context, finalized *bool) (int, error) {
	query := `SELECT COUNT(*) FROM brackets`
	args := make([]interface{}, 0, 1)
	if finalized != nil {
		query += ` WHERE finalized = $1`
		args = append(args, *finalized)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
