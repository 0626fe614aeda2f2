package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/repositories"
	"github.com/deltacrown/bracket-engine/storage"
)

// LeaderboardSnapshot is the exported document format. Snapshots are
// immutable; each export gets a timestamped key.
type LeaderboardSnapshot struct {
	Kind          string                        `json:"kind"`
	GeneratedAt   time.Time                     `json:"generated_at"`
	Teams         []*models.TeamRanking         `json:"teams,omitempty"`
	Organizations []*models.OrganizationRanking `json:"organizations,omitempty"`
}

// SnapshotService exports the current leaderboards to object storage after
// each ranking cycle, so the web frontends can serve them without hitting
// the database.
type SnapshotService interface {
	ExportLeaderboards(ctx context.Context, topN int) ([]*storage.UploadResult, error)
}

type snapshotService struct {
	teamRankingRepo repositories.TeamRankingRepository
	orgRankingRepo  repositories.OrganizationRankingRepository
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewSnapshotService(
	teamRankingRepo repositories.TeamRankingRepository,
	orgRankingRepo repositories.OrganizationRankingRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) SnapshotService {
	return &snapshotService{
		teamRankingRepo: teamRankingRepo,
		orgRankingRepo:  orgRankingRepo,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *snapshotService) ExportLeaderboards(ctx context.Context, topN int) ([]*storage.UploadResult, error) {
	if topN <= 0 {
		topN = 100
	}
	now := time.Now().UTC()
	results := make([]*storage.UploadResult, 0, 2)

	teams, err := s.teamRankingRepo.ListTop(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("failed to load team leaderboard for snapshot: %w", err)
	}
	teamResult, err := s.upload(ctx, LeaderboardSnapshot{
		Kind:        "teams",
		GeneratedAt: now,
		Teams:       teams,
	}, fmt.Sprintf("leaderboards/teams-%s.json", now.Format("20060102-150405")))
	if err != nil {
		return nil, err
	}
	results = append(results, teamResult)

	orgs, err := s.orgRankingRepo.ListTop(ctx, topN)
	if err != nil {
		return results, fmt.Errorf("failed to load organization leaderboard for snapshot: %w", err)
	}
	orgResult, err := s.upload(ctx, LeaderboardSnapshot{
		Kind:          "organizations",
		GeneratedAt:   now,
		Organizations: orgs,
	}, fmt.Sprintf("leaderboards/organizations-%s.json", now.Format("20060102-150405")))
	if err != nil {
		return results, err
	}
	results = append(results, orgResult)

	s.logger.Info("leaderboard snapshots exported",
		slog.String("teams_key", teamResult.Key),
		slog.String("organizations_key", orgResult.Key),
	)
	return results, nil
}

func (s *snapshotService) upload(ctx context.Context, snapshot LeaderboardSnapshot, key string) (*storage.UploadResult, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s snapshot: %w", snapshot.Kind, err)
	}
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s snapshot: %w", snapshot.Kind, err)
	}
	return result, nil
}
