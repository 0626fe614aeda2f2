package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deltacrown/bracket-engine/models"
)

var ErrParticipantNotFound = errors.New("participant not found")

type ParticipantRepository interface {
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

const participantColumns = `id, tournament_id, kind, ref_id, display_name, seed, rating, status, registered_at`

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	var p models.Participant
	err := rowScanner.Scan(
		&p.ID, &p.TournamentID, &p.Kind, &p.RefID, &p.DisplayName,
		&p.Seed, &p.Rating, &p.Status, &p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return r.scanParticipant(r.db.QueryRowContext(ctx, query, id))
}

// ListByTournament returns participants in registration order, which is also
// the tie-break order the seeder relies on.
func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY registered_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, errScan := r.scanParticipant(rows)
		if errScan != nil {
			return nil, errScan
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
