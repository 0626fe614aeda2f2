package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deltacrown/bracket-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByBracket(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error
	ListTeamOutcomesSince(ctx context.Context, teamID int, since *time.Time) ([]*models.MatchOutcome, error)
	CountMatches(ctx context.Context, status *models.MatchStatus) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, bracket_id, tournament_id, round, order_in_round, losers_side,
		slot_a_participant_id, slot_b_participant_id, score, status, winner_participant_id,
		is_bye, bracket_match_uid, next_match_id, winner_to_slot, match_time, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(bracket_id, tournament_id, round, order_in_round, losers_side,
			 slot_a_participant_id, slot_b_participant_id, score, status, winner_participant_id,
			 is_bye, bracket_match_uid, next_match_id, winner_to_slot, match_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.BracketID,
		match.TournamentID,
		match.Round,
		match.OrderInRound,
		match.LosersSide,
		match.SlotAParticipantID,
		match.SlotBParticipantID,
		match.Score,
		match.Status,
		match.WinnerParticipantID,
		match.IsBye,
		match.BracketMatchUID,
		match.NextMatchID,
		match.WinnerToSlot,
		match.MatchTime,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s for bracket %d: %w", match.BracketMatchUID, match.BracketID, err)
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.BracketID, &m.TournamentID, &m.Round, &m.OrderInRound, &m.LosersSide,
		&m.SlotAParticipantID, &m.SlotBParticipantID, &m.Score, &m.Status, &m.WinnerParticipantID,
		&m.IsBye, &m.BracketMatchUID, &m.NextMatchID, &m.WinnerToSlot, &m.MatchTime, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, bracketID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE bracket_id = $1`)

	args := []interface{}{bracketID}
	placeholder := 2
	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholder))
		args = append(args, *round)
		placeholder++
	}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *status)
		placeholder++
	}
	queryBuilder.WriteString(" ORDER BY losers_side ASC, round ASC, order_in_round ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`,
		nextMatchID, winnerToSlot, matchID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// ListTeamOutcomesSince reads the per-team results of completed matches from
// the team_match_results read model the match-reporting side maintains. The
// ranking jobs are the only consumer.
func (r *postgresMatchRepository) ListTeamOutcomesSince(ctx context.Context, teamID int, since *time.Time) ([]*models.MatchOutcome, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT match_id, team_id, opponent_id, won, draw, score_for, score_against, completed_at
		FROM team_match_results
		WHERE team_id = $1`)
	args := []interface{}{teamID}
	if since != nil {
		queryBuilder.WriteString(" AND completed_at > $2")
		args = append(args, *since)
	}
	queryBuilder.WriteString(" ORDER BY completed_at ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list match outcomes for team %d: %w", teamID, err)
	}
	defer rows.Close()

	outcomes := make([]*models.MatchOutcome, 0)
	for rows.Next() {
		var o models.MatchOutcome
		if err := rows.Scan(&o.MatchID, &o.TeamID, &o.OpponentID, &o.Won, &o.Draw, &o.ScoreFor, &o.ScoreAgainst, &o.CompletedAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func (r *postgresMatchRepository) CountMatches(ctx context.Context, status *models.MatchStatus) (int, error) {
	query := `SELECT COUNT(*) FROM matches`
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
