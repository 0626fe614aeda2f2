package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/repositories"
)

// fakeTeamRankingRepo is an in-memory TeamRankingRepository. Teams listed in
// failGetOrCreate error out on access so partial-failure accounting can be
// asserted.
type fakeTeamRankingRepo struct {
	mu sync.Mutex

	teamIDs  []int
	rankings map[int]*models.TeamRanking

	failGetOrCreate map[int]bool
	listErr         error
	blockList       chan struct{}

	updates int
	calls   *callLog
}

type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) record(entry string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

func newFakeTeamRankingRepo(teamIDs ...int) *fakeTeamRankingRepo {
	sort.Ints(teamIDs)
	return &fakeTeamRankingRepo{
		teamIDs:         teamIDs,
		rankings:        make(map[int]*models.TeamRanking),
		failGetOrCreate: make(map[int]bool),
	}
}

func (r *fakeTeamRankingRepo) pageIDs(ids []int, afterID, chunkSize int) []int {
	out := make([]int, 0, chunkSize)
	for _, id := range ids {
		if id > afterID {
			out = append(out, id)
			if len(out) == chunkSize {
				break
			}
		}
	}
	return out
}

func (r *fakeTeamRankingRepo) ListTeamIDs(ctx context.Context, filter repositories.TeamFilter, afterTeamID, chunkSize int) ([]int, error) {
	if r.blockList != nil {
		<-r.blockList
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.calls.record("list_teams")
	return r.pageIDs(r.teamIDs, afterTeamID, chunkSize), nil
}

func (r *fakeTeamRankingRepo) ListInactiveTeamIDs(ctx context.Context, cutoff time.Time, afterTeamID, chunkSize int) ([]int, error) {
	r.calls.record("list_inactive")
	r.mu.Lock()
	defer r.mu.Unlock()
	inactive := make([]int, 0)
	for _, id := range r.teamIDs {
		tr, ok := r.rankings[id]
		if !ok || tr.LastActivityAt == nil {
			continue
		}
		if tr.LastActivityAt.Before(cutoff) {
			inactive = append(inactive, id)
		}
	}
	return r.pageIDs(inactive, afterTeamID, chunkSize), nil
}

func (r *fakeTeamRankingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.TeamRanking, error) {
	if r.failGetOrCreate[teamID] {
		return nil, errors.New("storage unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.rankings[teamID]; ok {
		clone := *tr
		return &clone, nil
	}
	tr := &models.TeamRanking{ID: teamID, TeamID: teamID, Tier: models.TierBronze}
	r.rankings[teamID] = tr
	clone := *tr
	return &clone, nil
}

func (r *fakeTeamRankingRepo) Update(ctx context.Context, exec repositories.SQLExecutor, ranking *models.TeamRanking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ranking
	r.rankings[ranking.TeamID] = &clone
	r.updates++
	return nil
}

func (r *fakeTeamRankingRepo) ListByOrganization(ctx context.Context, organizationID int) ([]*models.TeamRanking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.TeamRanking, 0)
	for _, id := range r.teamIDs {
		if tr, ok := r.rankings[id]; ok && tr.GameID != nil && *tr.GameID == organizationID {
			clone := *tr
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTeamRankingRepo) ListTop(ctx context.Context, limit int) ([]*models.TeamRanking, error) {
	return nil, nil
}

func (r *fakeTeamRankingRepo) CountRanked(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rankings), nil
}

func (r *fakeTeamRankingRepo) ranking(teamID int) *models.TeamRanking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankings[teamID]
}

type fakeMatchOutcomeRepo struct {
	repositories.MatchRepository

	mu       sync.Mutex
	outcomes map[int][]*models.MatchOutcome
}

func newFakeMatchOutcomeRepo() *fakeMatchOutcomeRepo {
	return &fakeMatchOutcomeRepo{outcomes: make(map[int][]*models.MatchOutcome)}
}

func (r *fakeMatchOutcomeRepo) addOutcome(teamID int, won, draw bool, completedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[teamID] = append(r.outcomes[teamID], &models.MatchOutcome{
		TeamID:      teamID,
		Won:         won,
		Draw:        draw,
		CompletedAt: completedAt,
	})
}

func (r *fakeMatchOutcomeRepo) ListTeamOutcomesSince(ctx context.Context, teamID int, since *time.Time) ([]*models.MatchOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MatchOutcome, 0)
	for _, o := range r.outcomes[teamID] {
		if since != nil && !o.CompletedAt.After(*since) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type fakeOrgRankingRepo struct {
	mu sync.Mutex

	orgIDs   []int
	rankings map[int]*models.OrganizationRanking
	teams    *fakeTeamRankingRepo
	calls    *callLog
}

func newFakeOrgRankingRepo(teams *fakeTeamRankingRepo, orgIDs ...int) *fakeOrgRankingRepo {
	sort.Ints(orgIDs)
	return &fakeOrgRankingRepo{
		orgIDs:   orgIDs,
		rankings: make(map[int]*models.OrganizationRanking),
		teams:    teams,
	}
}

func (r *fakeOrgRankingRepo) ListOrganizationIDs(ctx context.Context, afterOrgID, chunkSize int) ([]int, error) {
	r.calls.record("list_orgs")
	out := make([]int, 0, chunkSize)
	for _, id := range r.orgIDs {
		if id > afterOrgID {
			out = append(out, id)
			if len(out) == chunkSize {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeOrgRankingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, organizationID int) (*models.OrganizationRanking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if or, ok := r.rankings[organizationID]; ok {
		clone := *or
		return &clone, nil
	}
	or := &models.OrganizationRanking{ID: organizationID, OrganizationID: organizationID, Tier: models.TierBronze}
	r.rankings[organizationID] = or
	clone := *or
	return &clone, nil
}

func (r *fakeOrgRankingRepo) Update(ctx context.Context, exec repositories.SQLExecutor, ranking *models.OrganizationRanking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ranking
	r.rankings[ranking.OrganizationID] = &clone
	return nil
}

func (r *fakeOrgRankingRepo) ListTop(ctx context.Context, limit int) ([]*models.OrganizationRanking, error) {
	return nil, nil
}

func (r *fakeOrgRankingRepo) CountRanked(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rankings), nil
}

func (r *fakeOrgRankingRepo) ranking(orgID int) *models.OrganizationRanking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankings[orgID]
}

func newTestRankingService(teams *fakeTeamRankingRepo, orgs *fakeOrgRankingRepo, matches *fakeMatchOutcomeRepo, cfg RankingConfig) RankingService {
	return NewRankingService(teams, orgs, matches, cfg, slog.New(slog.NewTextHandler(testWriter{}, nil)))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRecalculateTeamRankings_ScoresAndCounters(t *testing.T) {
	teams := newFakeTeamRankingRepo(1)
	matches := newFakeMatchOutcomeRepo()
	base := time.Now().Add(-48 * time.Hour)
	matches.addOutcome(1, true, false, base)
	matches.addOutcome(1, true, false, base.Add(time.Hour))
	matches.addOutcome(1, false, true, base.Add(2*time.Hour))
	matches.addOutcome(1, false, false, base.Add(3*time.Hour))

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), matches, RankingConfig{})

	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TeamsProcessed)
	assert.Equal(t, 1, summary.TeamsUpdated)
	assert.Equal(t, 0, summary.Errors)

	tr := teams.ranking(1)
	require.NotNil(t, tr)
	assert.Equal(t, float64(2*25+10+0), tr.Score)
	assert.Equal(t, 4, tr.MatchesPlayed)
	assert.Equal(t, 2, tr.Wins)
	assert.Equal(t, 1, tr.Draws)
	assert.Equal(t, 1, tr.Losses)
	assert.Equal(t, models.TierBronze, tr.Tier)
	require.NotNil(t, tr.LastActivityAt)
	assert.True(t, tr.LastActivityAt.Equal(base.Add(3*time.Hour)))
	require.NotNil(t, tr.RecalculatedAt)
}

func TestRecalculateTeamRankings_Incremental(t *testing.T) {
	teams := newFakeTeamRankingRepo(1)
	matches := newFakeMatchOutcomeRepo()
	matches.addOutcome(1, true, false, time.Now().Add(-time.Hour))

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), matches, RankingConfig{})

	_, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err)

	// Second run sees no outcomes newer than the recalculation watermark.
	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TeamsProcessed)
	assert.Equal(t, 0, summary.TeamsUpdated)
	assert.Equal(t, float64(25), teams.ranking(1).Score)
}

func TestRecalculateTeamRankings_WatermarkFollowsOutcomes(t *testing.T) {
	teams := newFakeTeamRankingRepo(1)
	matches := newFakeMatchOutcomeRepo()
	first := time.Now().Add(-2 * time.Hour)
	matches.addOutcome(1, true, false, first)

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), matches, RankingConfig{})

	_, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err)

	// The watermark is the newest consumed outcome, so a result that
	// completed after it but before the run finished is still picked up.
	late := first.Add(30 * time.Minute)
	matches.addOutcome(1, true, false, late)

	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TeamsUpdated)

	tr := teams.ranking(1)
	assert.Equal(t, float64(50), tr.Score)
	assert.Equal(t, 2, tr.MatchesPlayed)
	require.NotNil(t, tr.RecalculatedAt)
	assert.True(t, tr.RecalculatedAt.Equal(late))
}

func TestRecalculateTeamRankings_PartialFailure(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	teams := newFakeTeamRankingRepo(ids...)
	teams.failGetOrCreate[7] = true

	matches := newFakeMatchOutcomeRepo()
	for _, id := range ids {
		matches.addOutcome(id, true, false, time.Now().Add(-time.Hour))
	}

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), matches, RankingConfig{ChunkSize: 3})

	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.NoError(t, err, "one broken team must not abort the run")
	assert.Equal(t, 10, summary.TeamsProcessed)
	assert.Equal(t, 9, summary.TeamsUpdated)
	assert.Equal(t, 1, summary.Errors)
	assert.Nil(t, teams.ranking(7))
}

func TestRecalculateTeamRankings_FatalListError(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2, 3)
	teams.listErr = errors.New("connection refused")

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), newFakeMatchOutcomeRepo(), RankingConfig{})

	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	require.Error(t, err)
	assert.Equal(t, 0, summary.TeamsProcessed)
}

func TestRecalculateTeamRankings_Limit(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2, 3, 4, 5, 6, 7, 8)
	matches := newFakeMatchOutcomeRepo()
	for id := 1; id <= 8; id++ {
		matches.addOutcome(id, true, false, time.Now().Add(-time.Hour))
	}

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), matches, RankingConfig{ChunkSize: 3})

	summary, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TeamsProcessed)
}

func TestRecalculateTeamRankings_Cancellation(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2, 3)
	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), newFakeMatchOutcomeRepo(), RankingConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.RecalculateTeamRankings(ctx, RankingFilter{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary, "a canceled run still reports the partial summary")
	assert.Equal(t, 0, summary.TeamsProcessed)
}

func TestRecalculateTeamRankings_SingleFlight(t *testing.T) {
	teams := newFakeTeamRankingRepo(1)
	teams.blockList = make(chan struct{})

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), newFakeMatchOutcomeRepo(), RankingConfig{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	}()

	// Wait until the first run holds the guard and is blocked inside the repo.
	assert.Eventually(t, func() bool {
		_, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
		return errors.Is(err, ErrJobAlreadyRunning)
	}, time.Second, 5*time.Millisecond)

	close(teams.blockList)
	<-done

	// The guard is released after the run finishes.
	teams.blockList = nil
	_, err := svc.RecalculateTeamRankings(context.Background(), RankingFilter{})
	assert.NoError(t, err)
}

func TestApplyInactivityDecay(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2)
	lastActive := time.Now().AddDate(0, 0, -30)
	recentActive := time.Now().AddDate(0, 0, -2)
	teams.rankings[1] = &models.TeamRanking{ID: 1, TeamID: 1, Score: 1000, Tier: models.TierSilver, LastActivityAt: &lastActive}
	teams.rankings[2] = &models.TeamRanking{ID: 2, TeamID: 2, Score: 500, Tier: models.TierBronze, LastActivityAt: &recentActive}

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), newFakeMatchOutcomeRepo(), RankingConfig{})

	summary, err := svc.ApplyInactivityDecay(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TeamsProcessed, "recently active team is outside the working set")
	assert.Equal(t, 1, summary.TeamsDecayed)

	tr := teams.ranking(1)
	// 23 full days past the 7 day grace period at 2% per day.
	expected := 1000 * math.Pow(0.98, 23)
	assert.InDelta(t, expected, tr.Score, 0.01)
	assert.Equal(t, models.TierBronze, tr.Tier, "decay must re-bucket the tier")
	require.NotNil(t, tr.DecayAppliedAt)

	// Untouched team keeps its score.
	assert.Equal(t, float64(500), teams.ranking(2).Score)
}

func TestApplyInactivityDecay_DoesNotDoubleCharge(t *testing.T) {
	teams := newFakeTeamRankingRepo(1)
	lastActive := time.Now().AddDate(0, 0, -30)
	teams.rankings[1] = &models.TeamRanking{ID: 1, TeamID: 1, Score: 1000, Tier: models.TierSilver, LastActivityAt: &lastActive}

	svc := newTestRankingService(teams, newFakeOrgRankingRepo(teams), newFakeMatchOutcomeRepo(), RankingConfig{})

	_, err := svc.ApplyInactivityDecay(context.Background(), 7, 0)
	require.NoError(t, err)
	scoreAfterFirst := teams.ranking(1).Score

	summary, err := svc.ApplyInactivityDecay(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TeamsDecayed, "no full day has passed since the last application")
	assert.Equal(t, scoreAfterFirst, teams.ranking(1).Score)
}

func TestRecalculateOrganizationRankings_WeightedMean(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2, 3)
	org := 5
	// ListByOrganization in the fake keys on GameID as the org marker.
	teams.rankings[1] = &models.TeamRanking{ID: 1, TeamID: 1, GameID: &org, Score: 2000, MatchesPlayed: 30}
	teams.rankings[2] = &models.TeamRanking{ID: 2, TeamID: 2, GameID: &org, Score: 1000, MatchesPlayed: 10}
	teams.rankings[3] = &models.TeamRanking{ID: 3, TeamID: 3, Score: 9999, MatchesPlayed: 50}

	orgs := newFakeOrgRankingRepo(teams, org)
	svc := newTestRankingService(teams, orgs, newFakeMatchOutcomeRepo(), RankingConfig{})

	summary, err := svc.RecalculateOrganizationRankings(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OrgsProcessed)
	assert.Equal(t, 1, summary.OrgsUpdated)

	or := orgs.ranking(org)
	require.NotNil(t, or)
	// (2000*30 + 1000*10) / 40 = 1750
	assert.InDelta(t, 1750.0, or.Score, 0.001)
	assert.Equal(t, models.TierGold, or.Tier)
	assert.Equal(t, 2, or.TeamsCounted)
}

func TestRecalculateOrganizationRankings_PlainMeanFallback(t *testing.T) {
	teams := newFakeTeamRankingRepo(1, 2)
	org := 9
	teams.rankings[1] = &models.TeamRanking{ID: 1, TeamID: 1, GameID: &org, Score: 300}
	teams.rankings[2] = &models.TeamRanking{ID: 2, TeamID: 2, GameID: &org, Score: 100}

	orgs := newFakeOrgRankingRepo(teams, org)
	svc := newTestRankingService(teams, orgs, newFakeMatchOutcomeRepo(), RankingConfig{})

	_, err := svc.RecalculateOrganizationRankings(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, orgs.ranking(org).Score, 0.001)
}

func TestRunCycle_OrderingGuarantee(t *testing.T) {
	log := &callLog{}
	org := 1
	teams := newFakeTeamRankingRepo(1)
	teams.calls = log
	teams.rankings[1] = &models.TeamRanking{ID: 1, TeamID: 1, GameID: &org, Tier: models.TierBronze}
	orgs := newFakeOrgRankingRepo(teams, org)
	orgs.calls = log

	matches := newFakeMatchOutcomeRepo()
	matches.addOutcome(1, true, false, time.Now().Add(-time.Hour))

	svc := newTestRankingService(teams, orgs, matches, RankingConfig{})

	cycle, err := svc.RunCycle(context.Background(), RankingFilter{})
	require.NoError(t, err)
	assert.False(t, cycle.FinishedAt.Before(cycle.StartedAt))

	// The organization score reflects the post-recalculation team score.
	assert.Equal(t, float64(25), teams.ranking(1).Score)
	assert.InDelta(t, 25.0, orgs.ranking(org).Score, 0.001)

	// Organizations must only be aggregated after team scores are fresh.
	var teamIdx, orgIdx = -1, -1
	for i, entry := range log.entries {
		if entry == "list_teams" && teamIdx == -1 {
			teamIdx = i
		}
		if entry == "list_orgs" && orgIdx == -1 {
			orgIdx = i
		}
	}
	require.NotEqual(t, -1, teamIdx)
	require.NotEqual(t, -1, orgIdx)
	assert.Less(t, teamIdx, orgIdx)
}
