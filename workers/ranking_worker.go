package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/deltacrown/bracket-engine/realtime"
	"github.com/deltacrown/bracket-engine/services"
)

// RankingWorker runs the full ranking cycle on a fixed interval and pushes
// the refreshed leaderboards out: a snapshot export to object storage and a
// websocket notification to the rankings room. Snapshot export is optional;
// pass a nil SnapshotService to disable it.
type RankingWorker struct {
	ranking   services.RankingService
	snapshots services.SnapshotService
	hub       *realtime.Hub
	interval  time.Duration
	topN      int
	logger    *slog.Logger

	scheduler gocron.Scheduler
}

func NewRankingWorker(
	ranking services.RankingService,
	snapshots services.SnapshotService,
	hub *realtime.Hub,
	interval time.Duration,
	topN int,
	logger *slog.Logger,
) *RankingWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RankingWorker{
		ranking:   ranking,
		snapshots: snapshots,
		hub:       hub,
		interval:  interval,
		topN:      topN,
		logger:    logger,
	}
}

func (w *RankingWorker) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create ranking scheduler: %w", err)
	}
	w.scheduler = scheduler

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.runCycle(ctx) }),
		// Overlapping cycles would trip the single-flight guards anyway;
		// skip instead of queueing up.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule ranking cycle: %w", err)
	}

	scheduler.Start()
	w.logger.Info("ranking worker started", slog.Duration("interval", w.interval))
	return nil
}

func (w *RankingWorker) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}

func (w *RankingWorker) runCycle(ctx context.Context) {
	summary, err := w.ranking.RunCycle(ctx, services.RankingFilter{})
	if err != nil {
		w.logger.Error("scheduled ranking cycle failed", slog.Any("error", err))
		return
	}
	w.logger.Info("scheduled ranking cycle finished",
		slog.Int("teams_processed", summary.Teams.TeamsProcessed),
		slog.Int("teams_updated", summary.Teams.TeamsUpdated),
		slog.Int("teams_decayed", summary.Decay.TeamsDecayed),
		slog.Int("orgs_updated", summary.Organizations.OrgsUpdated),
		slog.Int("errors", summary.Teams.Errors+summary.Decay.Errors+summary.Organizations.Errors),
	)

	if w.snapshots != nil {
		if _, err := w.snapshots.ExportLeaderboards(ctx, w.topN); err != nil {
			w.logger.Error("leaderboard snapshot export failed", slog.Any("error", err))
		}
	}

	w.hub.BroadcastToRoom(realtime.RankingsRoom, realtime.Message{
		Type:    realtime.EventRankingsUpdated,
		Payload: summary,
	})
}
