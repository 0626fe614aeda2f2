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

var ErrTeamRankingNotFound = errors.New("team ranking not found")

// TeamFilter narrows the working set of a ranking batch run.
type TeamFilter struct {
	GameID *int
	Region *string
}

type TeamRankingRepository interface {
	// ListTeamIDs pages through team ids matching the filter using keyset
	// pagination: ids strictly greater than afterTeamID, ascending, at most
	// chunkSize. The batch jobs call it repeatedly until it returns empty.
	ListTeamIDs(ctx context.Context, filter TeamFilter, afterTeamID, chunkSize int) ([]int, error)
	// ListInactiveTeamIDs pages the same way over teams whose last recorded
	// activity is older than cutoff. Teams with no activity at all are left
	// alone: there is nothing to decay.
	ListInactiveTeamIDs(ctx context.Context, cutoff time.Time, afterTeamID, chunkSize int) ([]int, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamRanking, error)
	Update(ctx context.Context, exec SQLExecutor, ranking *models.TeamRanking) error
	ListByOrganization(ctx context.Context, organizationID int) ([]*models.TeamRanking, error)
	ListTop(ctx context.Context, limit int) ([]*models.TeamRanking, error)
	CountRanked(ctx context.Context) (int, error)
}

type postgresTeamRankingRepository struct {
	db *sql.DB
}

func NewPostgresTeamRankingRepository(db *sql.DB) TeamRankingRepository {
	return &postgresTeamRankingRepository{db: db}
}

func (r *postgresTeamRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRankingRepository) ListTeamIDs(ctx context.Context, filter TeamFilter, afterTeamID, chunkSize int) ([]int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id FROM teams WHERE id > $1`)
	args := []interface{}{afterTeamID}
	placeholder := 2

	if filter.GameID != nil {
		queryBuilder.WriteString(" AND game_id = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.GameID)
		placeholder++
	}
	if filter.Region != nil {
		queryBuilder.WriteString(" AND region = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Region)
		placeholder++
	}
	queryBuilder.WriteString(" ORDER BY id ASC LIMIT $" + strconv.Itoa(placeholder))
	args = append(args, chunkSize)

	return r.queryIDs(ctx, queryBuilder.String(), args...)
}

func (r *postgresTeamRankingRepository) ListInactiveTeamIDs(ctx context.Context, cutoff time.Time, afterTeamID, chunkSize int) ([]int, error) {
	query := `
		SELECT team_id FROM team_rankings
		WHERE team_id > $1 AND last_activity_at IS NOT NULL AND last_activity_at < $2
		ORDER BY team_id ASC
		LIMIT $3`
	return r.queryIDs(ctx, query, afterTeamID, cutoff, chunkSize)
}

func (r *postgresTeamRankingRepository) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to page team ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const teamRankingColumns = `id, team_id, game_id, region, score, tier, matches_played, wins, draws, losses,
		last_activity_at, recalculated_at, decay_applied_at, updated_at`

func (r *postgresTeamRankingRepository) scanRanking(rowScanner interface{ Scan(...interface{}) error }) (*models.TeamRanking, error) {
	var tr models.TeamRanking
	err := rowScanner.Scan(
		&tr.ID, &tr.TeamID, &tr.GameID, &tr.Region, &tr.Score, &tr.Tier,
		&tr.MatchesPlayed, &tr.Wins, &tr.Draws, &tr.Losses,
		&tr.LastActivityAt, &tr.RecalculatedAt, &tr.DecayAppliedAt, &tr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamRankingNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// GetOrCreate returns the current ranking row for a team, creating a zeroed
// bronze row on first sight. Rankings are created lazily by the batch jobs,
// never by registration flows.
func (r *postgresTeamRankingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, teamID int) (*models.TeamRanking, error) {
	executor := r.getExecutor(exec)

	query := `SELECT ` + teamRankingColumns + ` FROM team_rankings WHERE team_id = $1`
	ranking, err := r.scanRanking(executor.QueryRowContext(ctx, query, teamID))
	if err == nil {
		return ranking, nil
	}
	if !errors.Is(err, ErrTeamRankingNotFound) {
		return nil, fmt.Errorf("failed to get ranking for team %d: %w", teamID, err)
	}

	insert := `
		INSERT INTO team_rankings (team_id, game_id, region, score, tier, updated_at)
		SELECT t.id, t.game_id, t.region, 0, $2, $3 FROM teams t WHERE t.id = $1
		RETURNING ` + teamRankingColumns
	ranking, err = r.scanRanking(executor.QueryRowContext(ctx, insert, teamID, models.TierBronze, time.Now()))
	if err != nil {
		if errors.Is(err, ErrTeamRankingNotFound) {
			// INSERT ... SELECT matched no team row.
			return nil, fmt.Errorf("team %d does not exist: %w", teamID, ErrTeamRankingNotFound)
		}
		return nil, fmt.Errorf("failed to create ranking for team %d: %w", teamID, err)
	}
	return ranking, nil
}

func (r *postgresTeamRankingRepository) Update(ctx context.Context, exec SQLExecutor, ranking *models.TeamRanking) error {
	executor := r.getExecutor(exec)
	ranking.UpdatedAt = time.Now()
	query := `
		UPDATE team_rankings SET
			score = $1, tier = $2, matches_played = $3, wins = $4, draws = $5, losses = $6,
			last_activity_at = $7, recalculated_at = $8, decay_applied_at = $9, updated_at = $10
		WHERE id = $11`
	result, err := executor.ExecContext(ctx, query,
		ranking.Score, ranking.Tier, ranking.MatchesPlayed, ranking.Wins, ranking.Draws, ranking.Losses,
		ranking.LastActivityAt, ranking.RecalculatedAt, ranking.DecayAppliedAt, ranking.UpdatedAt,
		ranking.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamRankingNotFound)
}

func (r *postgresTeamRankingRepository) ListByOrganization(ctx context.Context, organizationID int) ([]*models.TeamRanking, error) {
	query := `
		SELECT ` + prefixedTeamRankingColumns("tr") + `
		FROM team_rankings tr
		JOIN teams t ON t.id = tr.team_id
		WHERE t.organization_id = $1
		ORDER BY tr.team_id ASC`
	return r.listRankings(ctx, query, organizationID)
}

func (r *postgresTeamRankingRepository) ListTop(ctx context.Context, limit int) ([]*models.TeamRanking, error) {
	query := `
		SELECT ` + teamRankingColumns + `
		FROM team_rankings
		ORDER BY score DESC, team_id ASC
		LIMIT $1`
	return r.listRankings(ctx, query, limit)
}

func (r *postgresTeamRankingRepository) listRankings(ctx context.Context, query string, args ...interface{}) ([]*models.TeamRanking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list team rankings: %w", err)
	}
	defer rows.Close()

	rankings := make([]*models.TeamRanking, 0)
	for rows.Next() {
		tr, errScan := r.scanRanking(rows)
		if errScan != nil {
			return nil, errScan
		}
		rankings = append(rankings, tr)
	}
	return rankings, rows.Err()
}

func (r *postgresTeamRankingRepository) CountRanked(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_rankings`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func prefixedTeamRankingColumns(alias string) string {
	cols := strings.Split(teamRankingColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
