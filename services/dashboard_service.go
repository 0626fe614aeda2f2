package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/repositories"
)

// DashboardService aggregates operational counts for the admin dashboard.
type DashboardService interface {
	GetStats(ctx context.Context) (*models.DashboardStats, error)
}

type dashboardService struct {
	tournamentRepo  repositories.TournamentRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	teamRankingRepo repositories.TeamRankingRepository
	orgRankingRepo  repositories.OrganizationRankingRepository
}

func NewDashboardService(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	teamRankingRepo repositories.TeamRankingRepository,
	orgRankingRepo repositories.OrganizationRankingRepository,
) DashboardService {
	return &dashboardService{
		tournamentRepo:  tournamentRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		teamRankingRepo: teamRankingRepo,
		orgRankingRepo:  orgRankingRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	activeStatus := models.TournamentStatusActive
	completedStatus := models.MatchStatusCompleted
	finalized := true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TournamentsTotal, err = s.tournamentRepo.CountTournaments(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveTournaments, err = s.tournamentRepo.CountTournaments(gctx, &activeStatus)
		return err
	})
	g.Go(func() (err error) {
		stats.BracketsTotal, err = s.bracketRepo.CountBrackets(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.FinalizedBrackets, err = s.bracketRepo.CountBrackets(gctx, &finalized)
		return err
	})
	g.Go(func() (err error) {
		stats.MatchesTotal, err = s.matchRepo.CountMatches(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.CompletedMatches, err = s.matchRepo.CountMatches(gctx, &completedStatus)
		return err
	})
	g.Go(func() (err error) {
		stats.RankedTeams, err = s.teamRankingRepo.CountRanked(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RankedOrganizations, err = s.orgRankingRepo.CountRanked(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect dashboard stats: %w", err)
	}
	return stats, nil
}
