package services

import (
	"context"
	"fmt"

	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/repositories"
)

const maxLeaderboardSize = 500

// LeaderboardService serves the read side of the rankings: ordered top lists
// for teams and organizations.
type LeaderboardService interface {
	TopTeams(ctx context.Context, limit int) ([]*models.TeamRanking, error)
	TopOrganizations(ctx context.Context, limit int) ([]*models.OrganizationRanking, error)
}

type leaderboardService struct {
	teamRankingRepo repositories.TeamRankingRepository
	orgRankingRepo  repositories.OrganizationRankingRepository
}

func NewLeaderboardService(
	teamRankingRepo repositories.TeamRankingRepository,
	orgRankingRepo repositories.OrganizationRankingRepository,
) LeaderboardService {
	return &leaderboardService{
		teamRankingRepo: teamRankingRepo,
		orgRankingRepo:  orgRankingRepo,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxLeaderboardSize {
		return maxLeaderboardSize
	}
	return limit
}

func (s *leaderboardService) TopTeams(ctx context.Context, limit int) ([]*models.TeamRanking, error) {
	teams, err := s.teamRankingRepo.ListTop(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load team leaderboard: %w", err)
	}
	return teams, nil
}

func (s *leaderboardService) TopOrganizations(ctx context.Context, limit int) ([]*models.OrganizationRanking, error) {
	orgs, err := s.orgRankingRepo.ListTop(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load organization leaderboard: %w", err)
	}
	return orgs, nil
}
