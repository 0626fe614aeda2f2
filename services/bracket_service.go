package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deltacrown/bracket-engine/brackets"
	"github.com/deltacrown/bracket-engine/models"
	"github.com/deltacrown/bracket-engine/realtime"
	"github.com/deltacrown/bracket-engine/repositories"
)

// BracketData is the full view of a tournament's bracket: the skeleton with
// all generated matches plus the participant list needed to render it.
type BracketData struct {
	Bracket      *models.Bracket       `json:"bracket"`
	Participants []*models.Participant `json:"participants"`
}

type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournamentID int, method brackets.SeedMethod) (*models.Bracket, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketData, error)
	ResetBracket(ctx context.Context, tournamentID int) error
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	hub             *realtime.Hub
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		hub:             hub,
		logger:          logger,
	}
}

func generatorForFormat(format models.BracketFormat) (brackets.BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return brackets.NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return brackets.NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return brackets.NewRoundRobinGenerator(), nil
	case models.FormatSwiss:
		return brackets.NewSwissGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// GenerateAndSaveBracket seeds the confirmed participants, generates the full
// match topology for the tournament's format and persists it in a single
// transaction. Rebuilding over an already finalized bracket is refused; the
// caller must reset explicitly first.
func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournamentID int, method brackets.SeedMethod) (*models.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: tournament %d", ErrNotFound, tournamentID)
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	generator, err := generatorForFormat(tournament.Format)
	if err != nil {
		return nil, err
	}

	staleBracket := false
	existing, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID)
	switch {
	case err == nil:
		if existing.Finalized && tournament.Status != models.TournamentStatusCanceled {
			return nil, fmt.Errorf("%w: a finalized bracket already exists for tournament %d", ErrTournamentNotReady, tournamentID)
		}
		// A non-finalized leftover is an aborted earlier generation; replace it.
		staleBracket = true
	case errors.Is(err, repositories.ErrBracketNotFound):
	default:
		return nil, fmt.Errorf("failed to check existing bracket for tournament %d: %w", tournamentID, err)
	}

	confirmed := models.ParticipantStatusConfirmed
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants for tournament %d: %w", tournamentID, err)
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 confirmed participants, found %d", ErrTournamentNotReady, len(participants))
	}

	seeded, err := brackets.Seed(participants, method, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   tournament,
		Participants: seeded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket for tournament %d: %w", generator.GetName(), tournamentID, err)
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(tournament.Format)),
		slog.Int("participants", len(seeded)),
		slog.Int("rounds", generated.Rounds),
		slog.Int("matches", len(generated.Matches)),
	)

	bracket, err := s.saveBracket(ctx, tournament, generated, staleBracket)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Message{
		Type:    realtime.EventBracketGenerated,
		Payload: bracket,
	})
	return bracket, nil
}

// saveBracket persists the generated topology in one transaction. The named
// results let the deferred commit/rollback turn a commit failure into the
// function's error instead of reporting a bracket that was never written.
func (s *bracketService) saveBracket(ctx context.Context, tournament *models.Tournament, generated *brackets.GeneratedBracket, replaceStale bool) (bracket *models.Bracket, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
			}
			bracket = nil
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit bracket transaction: %w", cErr)
			bracket = nil
		}
	}()

	if replaceStale {
		if err = s.bracketRepo.DeleteByTournamentID(ctx, tx, tournament.ID); err != nil {
			return nil, err
		}
	}

	bracket = &models.Bracket{
		TournamentID: tournament.ID,
		Format:       generated.Format,
		Rounds:       generated.Rounds,
	}
	if err = s.bracketRepo.Create(ctx, tx, bracket); err != nil {
		return nil, err
	}

	defaultMatchTime := tournament.StartDate
	if time.Now().After(defaultMatchTime) {
		defaultMatchTime = time.Now().Add(15 * time.Minute)
	}

	// First pass: persist every generated match and remember its DB id by UID.
	uidToDBID := make(map[string]int, len(generated.Matches))
	dbMatches := make([]*models.Match, 0, len(generated.Matches))
	for _, bm := range generated.Matches {
		match := &models.Match{
			BracketID:          bracket.ID,
			TournamentID:       tournament.ID,
			Round:              bm.Round,
			OrderInRound:       bm.OrderInRound,
			LosersSide:         bm.LosersSide,
			SlotAParticipantID: bm.Participant1ID,
			SlotBParticipantID: bm.Participant2ID,
			IsBye:              bm.IsBye,
			BracketMatchUID:    bm.UID,
			MatchTime:          defaultMatchTime,
		}
		switch {
		case bm.IsBye:
			// A bye is recorded as completed with the advancing participant
			// as winner; there is no contest to schedule.
			match.Status = models.MatchStatusCompleted
			match.WinnerParticipantID = bm.ByeParticipantID
		case bm.Participant1ID != nil && bm.Participant2ID != nil:
			match.Status = models.MatchStatusScheduled
		default:
			match.Status = models.MatchStatusPending
		}

		if err = s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, err
		}
		uidToDBID[bm.UID] = match.ID
		dbMatches = append(dbMatches, match)
	}

	// Second pass: wire winner advancement. Each source UID feeds exactly one
	// later match slot.
	type feed struct {
		targetUID string
		slot      int
	}
	feeds := make(map[string]feed, len(generated.Matches))
	for _, bm := range generated.Matches {
		if bm.SourceMatch1UID != nil {
			feeds[*bm.SourceMatch1UID] = feed{targetUID: bm.UID, slot: 1}
		}
		if bm.SourceMatch2UID != nil {
			feeds[*bm.SourceMatch2UID] = feed{targetUID: bm.UID, slot: 2}
		}
	}
	for _, match := range dbMatches {
		f, ok := feeds[match.BracketMatchUID]
		if !ok {
			continue
		}
		targetID, ok := uidToDBID[f.targetUID]
		if !ok {
			err = fmt.Errorf("internal: match %s feeds unknown match %s", match.BracketMatchUID, f.targetUID)
			return nil, err
		}
		slot := f.slot
		match.NextMatchID = &targetID
		match.WinnerToSlot = &slot
		if err = s.matchRepo.UpdateNextMatchInfo(ctx, tx, match.ID, match.NextMatchID, match.WinnerToSlot); err != nil {
			return nil, err
		}
	}

	if err = s.bracketRepo.SetFinalized(ctx, tx, bracket.ID, true); err != nil {
		return nil, err
	}
	bracket.Finalized = true
	bracket.Matches = dbMatches

	// The deferred commit may still overwrite bracket and err.
	return bracket, nil
}

// GetBracket loads the bracket skeleton, its matches and the tournament's
// confirmed participants. Matches and participants are independent reads and
// are fetched concurrently.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketData, error) {
	bracket, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, fmt.Errorf("%w: bracket for tournament %d", ErrNotFound, tournamentID)
		}
		return nil, err
	}

	var participants []*models.Participant
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := s.matchRepo.ListByBracket(gctx, bracket.ID, nil, nil)
		if err != nil {
			return err
		}
		bracket.Matches = matches
		return nil
	})
	g.Go(func() error {
		confirmed := models.ParticipantStatusConfirmed
		ps, err := s.participantRepo.ListByTournament(gctx, tournamentID, &confirmed)
		if err != nil {
			return err
		}
		participants = ps
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load bracket data for tournament %d: %w", tournamentID, err)
	}

	return &BracketData{Bracket: bracket, Participants: participants}, nil
}

// ResetBracket deletes the tournament's bracket and all its matches so a new
// one can be generated. This is the explicit escape hatch from the finalized
// idempotency guard.
func (s *bracketService) ResetBracket(ctx context.Context, tournamentID int) error {
	if _, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return fmt.Errorf("%w: bracket for tournament %d", ErrNotFound, tournamentID)
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.bracketRepo.DeleteByTournamentID(ctx, tx, tournamentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete bracket for tournament %d: %w", tournamentID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket reset: %w", err)
	}

	s.logger.Info("bracket reset", slog.Int("tournament_id", tournamentID))
	s.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Message{
		Type:    realtime.EventBracketReset,
		Payload: map[string]int{"tournament_id": tournamentID},
	})
	return nil
}
