package handlers

import (
	"net/http"

	"github.com/deltacrown/bracket-engine/brackets"
	"github.com/deltacrown/bracket-engine/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bracketService services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bracketService}
}

type generateBracketRequest struct {
	SeedMethod string `json:"seed_method"`
}

// GenerateBracket builds and persists the bracket for a tournament.
// POST /tournaments/{tournamentID}/bracket
func (h *BracketHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// seed_method defaults to random, so the body itself is optional.
	var input generateBracketRequest
	if err := readOptionalBody(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	method := brackets.SeedMethod(input.SeedMethod)
	if method == "" {
		method = brackets.SeedRandom
	}

	bracket, err := h.bracketService.GenerateAndSaveBracket(r.Context(), tournamentID, method)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket returns the stored bracket with matches and participants.
// GET /tournaments/{tournamentID}/bracket
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	data, err := h.bracketService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetBracket deletes the tournament's bracket so it can be regenerated.
// DELETE /tournaments/{tournamentID}/bracket
func (h *BracketHandler) ResetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.bracketService.ResetBracket(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
