package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/repositories"
)

// RankingConfig carries the scoring and batching policy for the ranking jobs.
// Values are injected at construction so the math in this file stays free of
// magic numbers.
type RankingConfig struct {
	// ChunkSize bounds how many entities are pulled per repository page.
	ChunkSize int
	// Points awarded per completed match result.
	WinPoints  float64
	DrawPoints float64
	LossPoints float64
	// DecayRatePerDay is the fractional score reduction applied per day of
	// inactivity beyond the cutoff.
	DecayRatePerDay float64
	// DecayCutoffDays is the grace period before decay starts.
	DecayCutoffDays int
}

func (c RankingConfig) withDefaults() RankingConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 250
	}
	if c.WinPoints == 0 {
		c.WinPoints = 25
	}
	if c.DrawPoints == 0 {
		c.DrawPoints = 10
	}
	if c.DecayRatePerDay <= 0 {
		c.DecayRatePerDay = 0.02
	}
	if c.DecayCutoffDays <= 0 {
		c.DecayCutoffDays = 7
	}
	return c
}

// RankingFilter narrows a team recalculation run. Limit caps the number of
// teams processed (0 means unbounded) and exists mainly for testing and
// manual partial runs.
type RankingFilter struct {
	GameID *int
	Region *string
	Limit  int
}

type TeamRankingSummary struct {
	TeamsProcessed int `json:"teams_processed"`
	TeamsUpdated   int `json:"teams_updated"`
	Errors         int `json:"errors"`
}

type DecaySummary struct {
	TeamsProcessed int `json:"teams_processed"`
	TeamsDecayed   int `json:"teams_decayed"`
	Errors         int `json:"errors"`
}

type OrganizationRankingSummary struct {
	OrgsProcessed int `json:"orgs_processed"`
	OrgsUpdated   int `json:"orgs_updated"`
	Errors        int `json:"errors"`
}

type RankingCycleSummary struct {
	Teams         TeamRankingSummary         `json:"teams"`
	Decay         DecaySummary               `json:"decay"`
	Organizations OrganizationRankingSummary `json:"organizations"`
	StartedAt     time.Time                  `json:"started_at"`
	FinishedAt    time.Time                  `json:"finished_at"`
}

// RankingService recomputes team and organization standings in chunked batch
// runs. One entity failing never aborts a run; only an unreadable working set
// does. A summary always reports error counts so callers can tell a clean run
// from a partial one.
type RankingService interface {
	RecalculateTeamRankings(ctx context.Context, filter RankingFilter) (*TeamRankingSummary, error)
	ApplyInactivityDecay(ctx context.Context, cutoffDays, limit int) (*DecaySummary, error)
	RecalculateOrganizationRankings(ctx context.Context, limit int) (*OrganizationRankingSummary, error)
	// RunCycle executes team recalculation, decay and organization
	// recalculation in that order, so organization scores always aggregate
	// fresh team scores.
	RunCycle(ctx context.Context, filter RankingFilter) (*RankingCycleSummary, error)
}

type rankingService struct {
	teamRankingRepo repositories.TeamRankingRepository
	orgRankingRepo  repositories.OrganizationRankingRepository
	matchRepo       repositories.MatchRepository
	cfg             RankingConfig
	logger          *slog.Logger

	// Per-job single-flight guards: concurrent runs of the same job over the
	// same tables are undefined behavior, so they are rejected outright.
	teamGuard  sync.Mutex
	decayGuard sync.Mutex
	orgGuard   sync.Mutex
	cycleGuard sync.Mutex
}

func NewRankingService(
	teamRankingRepo repositories.TeamRankingRepository,
	orgRankingRepo repositories.OrganizationRankingRepository,
	matchRepo repositories.MatchRepository,
	cfg RankingConfig,
	logger *slog.Logger,
) RankingService {
	return &rankingService{
		teamRankingRepo: teamRankingRepo,
		orgRankingRepo:  orgRankingRepo,
		matchRepo:       matchRepo,
		cfg:             cfg.withDefaults(),
		logger:          logger,
	}
}

func (s *rankingService) RecalculateTeamRankings(ctx context.Context, filter RankingFilter) (*TeamRankingSummary, error) {
	if !s.teamGuard.TryLock() {
		return nil, fmt.Errorf("%w: team recalculation", ErrJobAlreadyRunning)
	}
	defer s.teamGuard.Unlock()

	summary := &TeamRankingSummary{}
	repoFilter := repositories.TeamFilter{GameID: filter.GameID, Region: filter.Region}

	afterID := 0
	for {
		// Cancellation is honored at chunk boundaries, never mid-entity.
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		chunk := s.cfg.ChunkSize
		if filter.Limit > 0 {
			remaining := filter.Limit - summary.TeamsProcessed
			if remaining <= 0 {
				break
			}
			if remaining < chunk {
				chunk = remaining
			}
		}

		teamIDs, err := s.teamRankingRepo.ListTeamIDs(ctx, repoFilter, afterID, chunk)
		if err != nil {
			// The working set itself is unreadable: fatal, not per-entity.
			return summary, fmt.Errorf("failed to list team working set after id %d: %w", afterID, err)
		}
		if len(teamIDs) == 0 {
			break
		}

		for _, teamID := range teamIDs {
			updated, err := s.recalculateTeam(ctx, teamID)
			summary.TeamsProcessed++
			if err != nil {
				summary.Errors++
				s.logger.Error("team recalculation failed", slog.Int("team_id", teamID), slog.Any("error", err))
				continue
			}
			if updated {
				summary.TeamsUpdated++
			}
		}
		afterID = teamIDs[len(teamIDs)-1]
	}

	s.logger.Info("team ranking recalculation finished",
		slog.Int("processed", summary.TeamsProcessed),
		slog.Int("updated", summary.TeamsUpdated),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// recalculateTeam folds all completed match outcomes since the team's last
// recalculation into its score and win/loss record. Returns whether a write
// happened.
func (s *rankingService) recalculateTeam(ctx context.Context, teamID int) (bool, error) {
	ranking, err := s.teamRankingRepo.GetOrCreate(ctx, nil, teamID)
	if err != nil {
		return false, err
	}

	outcomes, err := s.matchRepo.ListTeamOutcomesSince(ctx, teamID, ranking.RecalculatedAt)
	if err != nil {
		return false, err
	}
	if len(outcomes) == 0 {
		return false, nil
	}

	var latest time.Time
	for _, outcome := range outcomes {
		ranking.MatchesPlayed++
		switch {
		case outcome.Draw:
			ranking.Draws++
			ranking.Score += s.cfg.DrawPoints
		case outcome.Won:
			ranking.Wins++
			ranking.Score += s.cfg.WinPoints
		default:
			ranking.Losses++
			ranking.Score += s.cfg.LossPoints
		}
		if outcome.CompletedAt.After(latest) {
			latest = outcome.CompletedAt
		}
		if ranking.LastActivityAt == nil || outcome.CompletedAt.After(*ranking.LastActivityAt) {
			completedAt := outcome.CompletedAt
			ranking.LastActivityAt = &completedAt
		}
	}
	if ranking.Score < 0 {
		ranking.Score = 0
	}
	ranking.Tier = models.TierForScore(ranking.Score)
	// The watermark is the newest consumed outcome, not wall-clock time, so a
	// result completing while this run is in flight is picked up next run
	// instead of being skipped forever.
	ranking.RecalculatedAt = &latest

	if err := s.teamRankingRepo.Update(ctx, nil, ranking); err != nil {
		return false, err
	}
	return true, nil
}

func (s *rankingService) ApplyInactivityDecay(ctx context.Context, cutoffDays, limit int) (*DecaySummary, error) {
	if !s.decayGuard.TryLock() {
		return nil, fmt.Errorf("%w: inactivity decay", ErrJobAlreadyRunning)
	}
	defer s.decayGuard.Unlock()

	if cutoffDays <= 0 {
		cutoffDays = s.cfg.DecayCutoffDays
	}
	cutoff := time.Now().AddDate(0, 0, -cutoffDays)

	summary := &DecaySummary{}
	afterID := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		chunk := s.cfg.ChunkSize
		if limit > 0 {
			remaining := limit - summary.TeamsProcessed
			if remaining <= 0 {
				break
			}
			if remaining < chunk {
				chunk = remaining
			}
		}

		teamIDs, err := s.teamRankingRepo.ListInactiveTeamIDs(ctx, cutoff, afterID, chunk)
		if err != nil {
			return summary, fmt.Errorf("failed to list inactive teams after id %d: %w", afterID, err)
		}
		if len(teamIDs) == 0 {
			break
		}

		for _, teamID := range teamIDs {
			decayed, err := s.decayTeam(ctx, teamID, cutoffDays)
			summary.TeamsProcessed++
			if err != nil {
				summary.Errors++
				s.logger.Error("decay failed", slog.Int("team_id", teamID), slog.Any("error", err))
				continue
			}
			if decayed {
				summary.TeamsDecayed++
			}
		}
		afterID = teamIDs[len(teamIDs)-1]
	}

	s.logger.Info("inactivity decay finished",
		slog.Int("processed", summary.TeamsProcessed),
		slog.Int("decayed", summary.TeamsDecayed),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// decayTeam shrinks an inactive team's score by DecayRatePerDay for every
// full day past the grace period that has not been decayed yet. The baseline
// advances with each application, so repeated runs never double-charge the
// same day.
func (s *rankingService) decayTeam(ctx context.Context, teamID, cutoffDays int) (bool, error) {
	ranking, err := s.teamRankingRepo.GetOrCreate(ctx, nil, teamID)
	if err != nil {
		return false, err
	}
	if ranking.LastActivityAt == nil || ranking.Score <= 0 {
		return false, nil
	}

	baseline := ranking.LastActivityAt.AddDate(0, 0, cutoffDays)
	if ranking.DecayAppliedAt != nil && ranking.DecayAppliedAt.After(baseline) {
		baseline = *ranking.DecayAppliedAt
	}

	now := time.Now()
	days := int(now.Sub(baseline).Hours() / 24)
	if days <= 0 {
		return false, nil
	}

	ranking.Score *= math.Pow(1-s.cfg.DecayRatePerDay, float64(days))
	if ranking.Score < 0 {
		ranking.Score = 0
	}
	ranking.Tier = models.TierForScore(ranking.Score)
	ranking.DecayAppliedAt = &now

	if err := s.teamRankingRepo.Update(ctx, nil, ranking); err != nil {
		return false, err
	}
	return true, nil
}

func (s *rankingService) RecalculateOrganizationRankings(ctx context.Context, limit int) (*OrganizationRankingSummary, error) {
	if !s.orgGuard.TryLock() {
		return nil, fmt.Errorf("%w: organization recalculation", ErrJobAlreadyRunning)
	}
	defer s.orgGuard.Unlock()

	summary := &OrganizationRankingSummary{}
	afterID := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		chunk := s.cfg.ChunkSize
		if limit > 0 {
			remaining := limit - summary.OrgsProcessed
			if remaining <= 0 {
				break
			}
			if remaining < chunk {
				chunk = remaining
			}
		}

		orgIDs, err := s.orgRankingRepo.ListOrganizationIDs(ctx, afterID, chunk)
		if err != nil {
			return summary, fmt.Errorf("failed to list organization working set after id %d: %w", afterID, err)
		}
		if len(orgIDs) == 0 {
			break
		}

		for _, orgID := range orgIDs {
			updated, err := s.recalculateOrganization(ctx, orgID)
			summary.OrgsProcessed++
			if err != nil {
				summary.Errors++
				s.logger.Error("organization recalculation failed", slog.Int("organization_id", orgID), slog.Any("error", err))
				continue
			}
			if updated {
				summary.OrgsUpdated++
			}
		}
		afterID = orgIDs[len(orgIDs)-1]
	}

	s.logger.Info("organization ranking recalculation finished",
		slog.Int("processed", summary.OrgsProcessed),
		slog.Int("updated", summary.OrgsUpdated),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// recalculateOrganization aggregates the organization's score as the mean of
// its constituent teams' current scores, weighted by matches played so teams
// with a real match record count for more than fresh placeholder rankings.
// Falls back to a plain mean when no team has played yet.
func (s *rankingService) recalculateOrganization(ctx context.Context, orgID int) (bool, error) {
	teamRankings, err := s.teamRankingRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return false, err
	}
	if len(teamRankings) == 0 {
		return false, nil
	}

	ranking, err := s.orgRankingRepo.GetOrCreate(ctx, nil, orgID)
	if err != nil {
		return false, err
	}

	var weightedSum, totalWeight, plainSum float64
	for _, tr := range teamRankings {
		weight := float64(tr.MatchesPlayed)
		weightedSum += tr.Score * weight
		totalWeight += weight
		plainSum += tr.Score
	}
	score := plainSum / float64(len(teamRankings))
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	ranking.Score = score
	ranking.Tier = models.TierForScore(score)
	ranking.TeamsCounted = len(teamRankings)

	if err := s.orgRankingRepo.Update(ctx, nil, ranking); err != nil {
		return false, err
	}
	return true, nil
}

func (s *rankingService) RunCycle(ctx context.Context, filter RankingFilter) (*RankingCycleSummary, error) {
	if !s.cycleGuard.TryLock() {
		return nil, fmt.Errorf("%w: ranking cycle", ErrJobAlreadyRunning)
	}
	defer s.cycleGuard.Unlock()

	cycle := &RankingCycleSummary{StartedAt: time.Now()}

	teams, err := s.RecalculateTeamRankings(ctx, filter)
	if teams != nil {
		cycle.Teams = *teams
	}
	if err != nil {
		return cycle, fmt.Errorf("ranking cycle aborted during team recalculation: %w", err)
	}

	decay, err := s.ApplyInactivityDecay(ctx, s.cfg.DecayCutoffDays, filter.Limit)
	if decay != nil {
		cycle.Decay = *decay
	}
	if err != nil {
		return cycle, fmt.Errorf("ranking cycle aborted during decay: %w", err)
	}

	orgs, err := s.RecalculateOrganizationRankings(ctx, filter.Limit)
	if orgs != nil {
		cycle.Organizations = *orgs
	}
	if err != nil {
		return cycle, fmt.Errorf("ranking cycle aborted during organization recalculation: %w", err)
	}

	cycle.FinishedAt = time.Now()
	return cycle, nil
}
