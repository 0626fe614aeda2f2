package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deltacrown/bracket-engine/models"
)

var ErrOrganizationRankingNotFound = errors.New("organization ranking not found")

type OrganizationRankingRepository interface {
	// ListOrganizationIDs pages organization ids with keyset pagination, the
	// same contract as TeamRankingRepository.ListTeamIDs.
	ListOrganizationIDs(ctx context.Context, afterOrgID, chunkSize int) ([]int, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, organizationID int) (*models.OrganizationRanking, error)
	Update(ctx context.Context, exec SQLExecutor, ranking *models.OrganizationRanking) error
	ListTop(ctx context.Context, limit int) ([]*models.OrganizationRanking, error)
	CountRanked(ctx context.Context) (int, error)
}

type postgresOrganizationRankingRepository struct {
	db *sql.DB
}

func NewPostgresOrganizationRankingRepository(db *sql.DB) OrganizationRankingRepository {
	return &postgresOrganizationRankingRepository{db: db}
}

func (r *postgresOrganizationRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresOrganizationRankingRepository) ListOrganizationIDs(ctx context.Context, afterOrgID, chunkSize int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM organizations WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		afterOrgID, chunkSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to page organization ids: %w", err)
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

const orgRankingColumns = `id, organization_id, score, tier, teams_counted, updated_at`

func (r *postgresOrganizationRankingRepository) scanRanking(rowScanner interface{ Scan(...interface{}) error }) (*models.OrganizationRanking, error) {
	var or models.OrganizationRanking
	err := rowScanner.Scan(&or.ID, &or.OrganizationID, &or.Score, &or.Tier, &or.TeamsCounted, &or.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationRankingNotFound
		}
		return nil, err
	}
	return &or, nil
}

func (r *postgresOrganizationRankingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, organizationID int) (*models.OrganizationRanking, error) {
	executor := r.getExecutor(exec)

	query := `SELECT ` + orgRankingColumns + ` FROM organization_rankings WHERE organization_id = $1`
	ranking, err := r.scanRanking(executor.QueryRowContext(ctx, query, organizationID))
	if err == nil {
		return ranking, nil
	}
	if !errors.Is(err, ErrOrganizationRankingNotFound) {
		return nil, fmt.Errorf("failed to get ranking for organization %d: %w", organizationID, err)
	}

	insert := `
		INSERT INTO organization_rankings (organization_id, score, tier, teams_counted, updated_at)
		SELECT o.id, 0, $2, 0, $3 FROM organizations o WHERE o.id = $1
		RETURNING ` + orgRankingColumns
	ranking, err = r.scanRanking(executor.QueryRowContext(ctx, insert, organizationID, models.TierBronze, time.Now()))
	if err != nil {
		if errors.Is(err, ErrOrganizationRankingNotFound) {
			return nil, fmt.Errorf("organization %d does not exist: %w", organizationID, ErrOrganizationRankingNotFound)
		}
		return nil, fmt.Errorf("failed to create ranking for organization %d: %w", organizationID, err)
	}
	return ranking, nil
}

func (r *postgresOrganizationRankingRepository) Update(ctx context.Context, exec SQLExecutor, ranking *models.OrganizationRanking) error {
	executor := r.getExecutor(exec)
	ranking.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx,
		`UPDATE organization_rankings SET score = $1, tier = $2, teams_counted = $3, updated_at = $4 WHERE id = $5`,
		ranking.Score, ranking.Tier, ranking.TeamsCounted, ranking.UpdatedAt, ranking.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrOrganizationRankingNotFound)
}

func (r *postgresOrganizationRankingRepository) ListTop(ctx context.Context, limit int) ([]*models.OrganizationRanking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orgRankingColumns+` FROM organization_rankings ORDER BY score DESC, organization_id ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization rankings: %w", err)
	}
	defer rows.Close()

	rankings := make([]*models.OrganizationRanking, 0)
	for rows.Next() {
		or, errScan := r.scanRanking(rows)
		if errScan != nil {
			return nil, errScan
		}
		rankings = append(rankings, or)
	}
	return rankings, rows.Err()
}

func (r *postgresOrganizationRankingRepository) CountRanked(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organization_rankings`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
