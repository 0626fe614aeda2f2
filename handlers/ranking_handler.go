package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deltacrown/bracket-engine/services"
)

type RankingHandler struct {
	rankingService services.RankingService
	jobRunner      *services.JobRunner
	leaderboards   services.LeaderboardService
}

func NewRankingHandler(rankingService services.RankingService, jobRunner *services.JobRunner, leaderboards services.LeaderboardService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
		jobRunner:      jobRunner,
		leaderboards:   leaderboards,
	}
}

type recalculateRequest struct {
	GameID *int    `json:"game_id,omitempty"`
	Region *string `json:"region,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	// CutoffDays is only consulted by the decay endpoints; zero means the
	// configured default.
	CutoffDays int `json:"cutoff_days,omitempty"`
}

func (req recalculateRequest) filter() services.RankingFilter {
	return services.RankingFilter{GameID: req.GameID, Region: req.Region, Limit: req.Limit}
}

// RecalculateTeams runs a team recalculation synchronously and returns the
// summary. POST /rankings/teams/recalculate
func (h *RankingHandler) RecalculateTeams(w http.ResponseWriter, r *http.Request) {
	var input recalculateRequest
	if err := readOptionalBody(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.rankingService.RecalculateTeamRankings(r.Context(), input.filter())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApplyDecay runs inactivity decay synchronously. POST /rankings/decay
func (h *RankingHandler) ApplyDecay(w http.ResponseWriter, r *http.Request) {
	var input recalculateRequest
	if err := readOptionalBody(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.rankingService.ApplyInactivityDecay(r.Context(), input.CutoffDays, input.Limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RunCycle runs the full team, decay and organization cycle synchronously.
// POST /rankings/cycle
func (h *RankingHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	var input recalculateRequest
	if err := readOptionalBody(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.rankingService.RunCycle(r.Context(), input.filter())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitJob enqueues a ranking job for background execution and returns its
// handle immediately. POST /rankings/jobs/{kind}
func (h *RankingHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var input recalculateRequest
	if err := readOptionalBody(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var (
		handle *services.JobHandle
		err    error
	)
	switch kind := chi.URLParam(r, "kind"); services.JobKind(kind) {
	case services.JobKindTeamRecalc:
		handle, err = h.jobRunner.SubmitTeamRecalculation(input.filter())
	case services.JobKindDecay:
		handle, err = h.jobRunner.SubmitInactivityDecay(input.CutoffDays, input.Limit)
	case services.JobKindOrgRecalc:
		handle, err = h.jobRunner.SubmitOrganizationRecalculation(input.Limit)
	case services.JobKindFullCycle:
		handle, err = h.jobRunner.SubmitFullCycle(input.filter())
	default:
		errorResponse(w, r, http.StatusBadRequest, "unknown job kind: "+kind)
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"job": handle}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetJob reports the state of a submitted job. GET /rankings/jobs/{jobID}
func (h *RankingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		errorResponse(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	handle, err := h.jobRunner.Get(jobID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"job": handle}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TeamLeaderboard returns the top ranked teams. GET /rankings/teams
func (h *RankingHandler) TeamLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := readIntQuery(r, "limit", 50)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.leaderboards.TopTeams(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OrganizationLeaderboard returns the top ranked organizations.
// GET /rankings/organizations
func (h *RankingHandler) OrganizationLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := readIntQuery(r, "limit", 50)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	orgs, err := h.leaderboards.TopOrganizations(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"organizations": orgs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
