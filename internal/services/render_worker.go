package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type RenderWorkerConfig struct {
	Concurrency  int
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
	Tick         time.Duration
}

// RenderWorker pulls render jobs off the queue and drives the pipeline.
// Exhausted retries trigger the compensating revert: the paper goes back to
// draft, but only while it is still finalized, so a stale revert never races
// a manual unfinalize or a later successful render.
type RenderWorker struct {
	db        *gorm.DB
	log       *logger.Logger
	jobRepo   repos.RenderJobRepo
	paperRepo repos.PaperRepo
	pipeline  RenderPipeline
	events    JobEventPublisher
	cfg       RenderWorkerConfig
}

func NewRenderWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.RenderJobRepo,
	paperRepo repos.PaperRepo,
	pipeline RenderPipeline,
	events JobEventPublisher,
	cfg RenderWorkerConfig,
) *RenderWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if cfg.StaleRunning <= 0 {
		cfg.StaleRunning = 2 * time.Minute
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 1 * time.Second
	}
	if events == nil {
		events = NopJobEvents{}
	}
	return &RenderWorker{
		db:        db,
		log:       baseLog.With("component", "RenderWorker"),
		jobRepo:   jobRepo,
		paperRepo: paperRepo,
		pipeline:  pipeline,
		events:    events,
		cfg:       cfg,
	}
}

func (w *RenderWorker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.Concurrency; i++ {
		go w.loop(ctx)
	}
}

func (w *RenderWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.jobRepo.ClaimNextRunnable(ctx, w.db, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						w.log.Error("Render job panicked", "job_id", job.ID, "paper_id", job.PaperID, "panic", r)
						w.fail(ctx, job, domain.NewError(domain.CodeInternal, "RenderWorker", "panic during render", nil))
					}
				}()
				w.process(ctx, job)
			}()
		}
	}
}

func (w *RenderWorker) process(ctx context.Context, job *types.RenderJob) {
	start := time.Now()
	w.log.Info("Render job started", "job_id", job.ID, "paper_id", job.PaperID, "attempt", job.Attempts)
	w.events.Publish(ctx, JobEvent{
		JobID:   job.ID,
		PaperID: job.PaperID,
		Event:   "started",
		Attempt: job.Attempts,
	})

	// Keep heartbeat_at fresh while the pipeline runs, so a render that
	// legitimately outlives the stale-running window is not reclaimed by
	// another loop goroutine.
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(hbCtx, job.ID)

	result, err := w.pipeline.GeneratePaperPDFs(ctx, job.OrganizationID, job.PaperID)
	stopHeartbeat()
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	duration := time.Since(start)
	now := time.Now()
	if uErr := w.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":     types.RenderJobStatusSucceeded,
		"error":      "",
		"locked_at":  nil,
		"updated_at": now,
	}); uErr != nil {
		w.log.Warn("Failed to mark render job succeeded", "job_id", job.ID, "error", uErr)
	}
	w.log.Info("Render job succeeded",
		"job_id", job.ID, "paper_id", job.PaperID,
		"total_bytes", result.TotalBytes, "duration_ms", duration.Milliseconds())
	w.events.Publish(ctx, JobEvent{
		JobID:      job.ID,
		PaperID:    job.PaperID,
		Event:      "succeeded",
		Attempt:    job.Attempts,
		TotalBytes: result.TotalBytes,
		DurationMS: duration.Milliseconds(),
	})
}

func (w *RenderWorker) heartbeatLoop(ctx context.Context, jobID uuid.UUID) {
	interval := w.cfg.StaleRunning / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.jobRepo.Heartbeat(ctx, nil, jobID); err != nil {
				w.log.Warn("Render job heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (w *RenderWorker) fail(ctx context.Context, job *types.RenderJob, err error) {
	permanent := job.Attempts >= w.cfg.MaxAttempts || !retryableCode(domain.CodeOf(err))
	now := time.Now()
	updates := map[string]interface{}{
		"status":        types.RenderJobStatusFailed,
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}
	if permanent && job.Attempts < w.cfg.MaxAttempts {
		// Non-retryable failures skip the remaining attempts.
		updates["attempts"] = w.cfg.MaxAttempts
	}
	if uErr := w.jobRepo.UpdateFields(ctx, nil, job.ID, updates); uErr != nil {
		w.log.Warn("Failed to mark render job failed", "job_id", job.ID, "error", uErr)
	}
	w.log.Warn("Render job failed",
		"job_id", job.ID, "paper_id", job.PaperID,
		"attempt", job.Attempts, "permanent", permanent, "error", err)
	w.events.Publish(ctx, JobEvent{
		JobID:   job.ID,
		PaperID: job.PaperID,
		Event:   "failed",
		Attempt: job.Attempts,
		Error:   err.Error(),
	})
	if !permanent {
		return
	}

	// Compensating revert, guarded on the paper still being finalized.
	reverted, rErr := w.paperRepo.UpdateByStatus(ctx, nil, job.PaperID,
		[]string{types.PaperStatusFinalized},
		map[string]interface{}{
			"status":  types.PaperStatusDraft,
			"version": gorm.Expr("version + 1"),
		})
	if rErr != nil {
		w.log.Error("Compensating revert failed", "job_id", job.ID, "paper_id", job.PaperID, "error", rErr)
		return
	}
	if reverted {
		w.log.Warn("Paper reverted to draft after exhausted render attempts", "paper_id", job.PaperID)
	}
}

func retryableCode(code domain.ErrorCode) bool {
	switch code {
	case domain.CodeValidation, domain.CodeNotFound, domain.CodePreconditionFailed, domain.CodeInsufficientInventory:
		return false
	default:
		return true
	}
}
