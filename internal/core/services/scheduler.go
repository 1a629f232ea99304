package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs reconciliation on a cron schedule.
// Overlapping ticks are skipped rather than queued.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	tracker driving.Tracker
	opts    domain.SyncOptions

	mu      sync.Mutex
	cron    *rcron.Cron
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. opts is passed to every scheduled run.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	tracker driving.Tracker,
	opts domain.SyncOptions,
) *Scheduler {
	if config.Spec == "" {
		config.Spec = domain.DefaultSchedulerConfig().Spec
	}
	opts.Trigger = domain.TaskIDReconcile
	return &Scheduler{
		config:  config,
		store:   store,
		tracker: tracker,
		opts:    opts,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	schedule, err := rcron.ParseStandard(s.config.Spec)
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrInvalidConfig, s.config.Spec, err)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.cron = rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	s.cron.Schedule(schedule, rcron.FuncJob(func() { s.runTask(ctx) }))
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.saveTask(ctx, schedule.Next(time.Now())); err != nil {
		logger.Warn("scheduler: failed to initialise task: %v", err)
	}

	if s.config.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runTask(ctx)
		}()
	}

	s.cron.Start()
	logger.Info("watching on %q, next run at %s", s.config.Spec,
		schedule.Next(time.Now()).Format(time.RFC3339))

	select {
	case <-ctx.Done():
		_ = s.Stop()
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop gracefully shuts down the scheduler and waits for a running
// reconciliation to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.wg.Wait()
	return nil
}

// runTask executes one reconciliation and records its task state.
// The tracker records the run itself in history.
func (s *Scheduler) runTask(ctx context.Context) {
	started := time.Now()
	report, err := s.tracker.Sync(ctx, s.opts)
	if errors.Is(err, domain.ErrSyncInProgress) {
		logger.Debug("scheduler: run skipped, another run is active")
		return
	}

	lastError := ""
	switch {
	case err != nil:
		lastError = err.Error()
	case report != nil && len(report.Failed()) > 0:
		lastError = fmt.Sprintf("%d files failed", len(report.Failed()))
	}

	var next time.Time
	s.mu.Lock()
	if s.cron != nil {
		for _, e := range s.cron.Entries() {
			next = e.Next
		}
	}
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	task, getErr := s.store.GetTask(ctx, domain.TaskIDReconcile)
	if getErr != nil || task == nil {
		task = &domain.ScheduledTask{ID: domain.TaskIDReconcile, Spec: s.config.Spec, SourceIDs: s.opts.SourceIDs}
	}
	task.LastRun = started
	task.NextRun = next
	task.LastError = lastError
	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	limit := s.config.HistoryLimit
	if limit <= 0 {
		limit = domain.DefaultSchedulerConfig().HistoryLimit
	}
	if pruneErr := s.store.PruneHistory(ctx, limit); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
}

// saveTask creates or updates the reconciliation task record.
func (s *Scheduler) saveTask(ctx context.Context, next time.Time) error {
	task, err := s.store.GetTask(ctx, domain.TaskIDReconcile)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: domain.TaskIDReconcile}
	}
	task.Spec = s.config.Spec
	task.SourceIDs = s.opts.SourceIDs
	task.NextRun = next
	return s.store.SaveTask(ctx, task)
}
