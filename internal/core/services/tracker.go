package services

import (
	"context"
	"crypto/sha1" //nolint:gosec // content hash, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driving"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// Ensure Tracker implements the interface.
var _ driving.Tracker = (*Tracker)(nil)

// Tracker drives reconciliation of every tracked file against the store.
//
// A file without a stored record is seeded from a local clone and its blame.
// Other files are fetched through the hosting API, skipped while inside the
// refresh window, and reconciled only when their content hash changed.
type Tracker struct {
	config     domain.TrackerConfig
	sources    *SourceService
	content    driven.ContentSource
	vcs        driven.VersionControl
	normaliser driven.Normaliser
	changes    *ChangeTracker
	items      driven.ItemStore
	records    driven.SourceStore

	// Optional collaborators.
	runs     driven.SchedulerStore
	review   driven.ReviewSink
	observer driven.RunObserver

	now     func() time.Time
	running atomic.Bool

	mu     sync.RWMutex
	active map[string]bool
}

// TrackerDeps groups the collaborators of a Tracker.
type TrackerDeps struct {
	Sources    *SourceService
	Content    driven.ContentSource
	VCS        driven.VersionControl
	Normaliser driven.Normaliser
	Items      driven.ItemStore
	Records    driven.SourceStore

	// Runs records run history when set.
	Runs driven.SchedulerStore

	// Review receives the manual review list when set.
	Review driven.ReviewSink

	// Observer receives metrics hooks when set.
	Observer driven.RunObserver
}

// NewTracker creates a tracker. Zero config fields take their defaults.
func NewTracker(config domain.TrackerConfig, deps TrackerDeps) *Tracker {
	defaults := domain.DefaultTrackerConfig()
	if config.RefreshWindow <= 0 {
		config.RefreshWindow = defaults.RefreshWindow
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.AnomalyThreshold <= 0 {
		config.AnomalyThreshold = defaults.AnomalyThreshold
	}
	if config.ReposDir == "" {
		config.ReposDir = defaults.ReposDir
	}
	return &Tracker{
		config:     config,
		sources:    deps.Sources,
		content:    deps.Content,
		vcs:        deps.VCS,
		normaliser: deps.Normaliser,
		changes:    NewChangeTracker(deps.Items),
		items:      deps.Items,
		records:    deps.Records,
		runs:       deps.Runs,
		review:     deps.Review,
		observer:   deps.Observer,
		now:        time.Now,
		active:     make(map[string]bool),
	}
}

// Changes returns the change tracker backing the tracker's store.
func (t *Tracker) Changes() *ChangeTracker {
	return t.changes
}

// fileJob is one tracked file scheduled in a run.
type fileJob struct {
	source *sourceRun
	file   domain.TrackedFile
}

// sourceRun holds per-source state shared by the file jobs of one run.
type sourceRun struct {
	source domain.Source

	mu       sync.Mutex
	meta     *domain.RepoMeta
	metaErr  error
	cloned   bool
	cloneErr error
}

// Sync runs one reconciliation pass over the selected sources.
//
//nolint:gocognit // run orchestration with a deferred flush
func (t *Tracker) Sync(ctx context.Context, opts domain.SyncOptions) (report *domain.RunReport, err error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer t.running.Store(false)

	sources, err := t.sources.Select(ctx, opts.SourceIDs)
	if err != nil {
		return nil, err
	}
	if len(opts.SourceIDs) == 0 {
		opts.Rebuild = false
	}

	report = &domain.RunReport{ID: uuid.NewString(), StartedAt: t.now()}

	runs := make([]*sourceRun, 0, len(sources))
	var jobs []fileJob
	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		run := &sourceRun{source: s}
		runs = append(runs, run)
		for _, f := range s.Files {
			jobs = append(jobs, fileJob{source: run, file: f})
		}
	}
	if opts.Limit > 0 && len(jobs) > opts.Limit {
		jobs = jobs[:opts.Limit]
	}

	t.setActive(sources, true)
	defer t.setActive(sources, false)

	outcomes := make([]domain.FileOutcome, len(jobs))
	var (
		reviewMu sync.Mutex
		review   []domain.ReviewEntry
	)

	defer func() {
		report.Files = outcomes
		sort.Slice(review, func(i, j int) bool {
			if review[i].SourceID != review[j].SourceID {
				return review[i].SourceID < review[j].SourceID
			}
			return review[i].File < review[j].File
		})
		report.Review = review
		report.EndedAt = t.now()
		if flushErr := t.flush(context.WithoutCancel(ctx), runs, report, opts, err); flushErr != nil {
			err = errors.Join(err, flushErr)
		}
		t.summarise(report, err)
		if t.observer != nil {
			t.observer.RunDone(report, err)
		}
	}()

	concurrency := t.config.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var counter atomic.Int32
	for i, job := range jobs {
		g.Go(func() error {
			n := counter.Add(1)
			outcome := t.processFile(gctx, job, opts)
			outcomes[i] = outcome

			name := job.source.source.Identifier + "/" + job.file.Path
			if outcome.Err != nil {
				logger.Warn("[%d/%d] %s %s: %v", n, len(jobs), name, outcome.State, outcome.Err)
			} else {
				logger.Info("[%d/%d] %s %s (%d new, %d total)",
					n, len(jobs), name, outcome.State, outcome.NewCount, outcome.TotalCount)
			}
			if t.observer != nil {
				t.observer.FileDone(outcome)
			}

			if outcome.State == domain.StatePersisted && outcome.TotalCount < t.config.AnomalyThreshold {
				reviewMu.Lock()
				review = append(review, domain.ReviewEntry{
					SourceID:  outcome.SourceID,
					File:      outcome.File,
					Count:     outcome.TotalCount,
					CheckedAt: t.now().UTC(),
				})
				reviewMu.Unlock()
			}

			if outcome.Initial && domain.IsInitError(outcome.Err) {
				return fmt.Errorf("init %s: %w", name, outcome.Err)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

// processFile walks one file through the state machine.
func (t *Tracker) processFile(ctx context.Context, job fileJob, opts domain.SyncOptions) domain.FileOutcome {
	src := job.source.source
	outcome := domain.FileOutcome{SourceID: src.Identifier, File: job.file.Path, State: domain.StateFetching}

	fail := func(err error) domain.FileOutcome {
		outcome.Err = err
		outcome.State = domain.StateFailed
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	record, err := t.items.GetFile(ctx, src.Identifier, job.file.Path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		record = nil
	case err != nil:
		return fail(err)
	}

	if record == nil || opts.Rebuild {
		outcome.Initial = true
		outcome.State = domain.StateNeedsInit
		result, err := t.initFile(ctx, job, opts)
		if err != nil {
			return fail(err)
		}
		outcome.State = domain.StatePersisted
		outcome.NewCount = result.NewCount
		outcome.TotalCount = result.TotalCount
		return outcome
	}

	now := t.now()
	if !opts.Force && now.Sub(record.CheckedAt) < t.config.RefreshWindow {
		outcome.State = domain.StateSkipped
		return outcome
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.config.FetchTimeout)
	content, err := t.content.FetchFileContent(fetchCtx, src.Identifier, job.file.Path, src.DefaultBranch)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("fetching: %w", err))
	}

	sha := contentHash(content)
	if sha == record.SHA && !opts.Force {
		outcome.State = domain.StateUpToDate
		if err := t.items.TouchFile(ctx, src.Identifier, job.file.Path, now); err != nil {
			return fail(err)
		}
		return outcome
	}

	outcome.State = domain.StateParsing
	meta, err := t.meta(ctx, job.source)
	if err != nil {
		return fail(err)
	}
	parsed, err := t.normaliser.Normalise(ctx, content, t.normaliseRequest(src, meta, job.file))
	if err != nil {
		return fail(err)
	}

	outcome.State = domain.StateReconciling
	result, err := t.changes.Reconcile(ctx, domain.FileRecord{
		SourceID:  src.Identifier,
		Path:      job.file.Path,
		SHA:       sha,
		CreatedAt: record.CreatedAt,
		CheckedAt: now,
	}, parsed, now)
	if err != nil {
		return fail(err)
	}

	outcome.State = domain.StatePersisted
	outcome.NewCount = result.NewCount
	outcome.TotalCount = result.TotalCount
	return outcome
}

// initFile seeds a file from the local clone of its repository.
func (t *Tracker) initFile(ctx context.Context, job fileJob, opts domain.SyncOptions) (domain.ReconcileResult, error) {
	if t.vcs == nil {
		return domain.ReconcileResult{}, errors.New("no version control adapter configured")
	}
	src := job.source.source

	meta, err := t.meta(ctx, job.source)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	workTree, err := t.clone(ctx, job.source, meta.DefaultBranch, opts.FetchRepoUpdates)
	if err != nil {
		return domain.ReconcileResult{}, err
	}

	content, err := t.vcs.ReadFile(workTree, job.file.Path)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("reading: %w", err)
	}
	blame, err := t.vcs.Blame(ctx, workTree, job.file.Path)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("blame: %w", err)
	}
	parsed, err := t.normaliser.Normalise(ctx, content, t.normaliseRequest(src, meta, job.file))
	if err != nil {
		return domain.ReconcileResult{}, err
	}

	return t.changes.Seed(ctx, domain.FileRecord{
		SourceID:  src.Identifier,
		Path:      job.file.Path,
		SHA:       contentHash(content),
		CheckedAt: t.now(),
	}, parsed, blame)
}

// meta fetches repository metadata once per source and run.
func (t *Tracker) meta(ctx context.Context, run *sourceRun) (*domain.RepoMeta, error) {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.meta == nil && run.metaErr == nil {
		fetchCtx, cancel := context.WithTimeout(ctx, t.config.FetchTimeout)
		run.meta, run.metaErr = t.content.FetchRepositoryMetadata(fetchCtx, run.source.Identifier,
			domain.RepoMetaOverride{DefaultBranch: run.source.DefaultBranch})
		cancel()
		if run.metaErr != nil {
			run.metaErr = fmt.Errorf("repository metadata: %w", run.metaErr)
		}
	}
	return run.meta, run.metaErr
}

// clone prepares the working tree once per source and run.
func (t *Tracker) clone(ctx context.Context, run *sourceRun, branch string, pull bool) (string, error) {
	workTree := filepath.Join(t.config.ReposDir, filepath.FromSlash(run.source.Identifier))
	run.mu.Lock()
	defer run.mu.Unlock()
	if !run.cloned {
		run.cloned = true
		run.cloneErr = t.vcs.CloneOrPull(ctx, run.source.CloneURL(), workTree, branch, pull)
	}
	return workTree, run.cloneErr
}

func (t *Tracker) normaliseRequest(src domain.Source, meta *domain.RepoMeta, file domain.TrackedFile) driven.NormaliseRequest {
	return driven.NormaliseRequest{
		RepoURL:       src.RepoURL(),
		DefaultBranch: meta.DefaultBranch,
		File:          file,
	}
}

// flush persists source records, the review list and run history.
// It runs on every exit path of Sync, so each step is best effort.
func (t *Tracker) flush(
	ctx context.Context,
	runs []*sourceRun,
	report *domain.RunReport,
	opts domain.SyncOptions,
	runErr error,
) error {
	var errs []error

	if t.records != nil {
		for _, run := range runs {
			if err := t.saveRecord(ctx, run); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if t.review != nil {
		if err := t.review.WriteReview(ctx, report.Review); err != nil {
			errs = append(errs, fmt.Errorf("writing review list: %w", err))
		}
	}

	if t.runs != nil {
		trigger := opts.Trigger
		if trigger == "" {
			trigger = domain.TriggerManual
		}
		result := &domain.TaskResult{
			RunID:        report.ID,
			TaskID:       trigger,
			StartedAt:    report.StartedAt,
			EndedAt:      report.EndedAt,
			Success:      runErr == nil && len(report.Failed()) == 0,
			FilesChanged: report.Changed(),
			NewItems:     report.NewItems(),
		}
		switch {
		case runErr != nil:
			result.Error = runErr.Error()
		case len(report.Failed()) > 0:
			result.Error = fmt.Sprintf("%d files failed", len(report.Failed()))
		}
		if err := t.runs.RecordResult(ctx, result); err != nil {
			errs = append(errs, fmt.Errorf("recording run: %w", err))
		}
	}

	for _, err := range errs {
		logger.Warn("flush: %v", err)
	}
	return errors.Join(errs...)
}

// saveRecord folds a source's file records and any fresh metadata into its
// stored record.
func (t *Tracker) saveRecord(ctx context.Context, run *sourceRun) error {
	id := run.source.Identifier
	run.mu.Lock()
	meta := run.meta
	run.mu.Unlock()

	record, err := t.records.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if meta == nil {
			return nil
		}
		record = &domain.SourceRecord{Identifier: id}
	case err != nil:
		return fmt.Errorf("loading source %s: %w", id, err)
	}

	files, err := t.items.ListFiles(ctx, id)
	if err != nil {
		return fmt.Errorf("listing files of %s: %w", id, err)
	}
	for _, f := range files {
		record.Absorb(f)
	}
	if meta != nil {
		record.Meta = *meta
	}
	if err := t.records.Save(ctx, *record); err != nil {
		return fmt.Errorf("saving source %s: %w", id, err)
	}
	return nil
}

func (t *Tracker) summarise(report *domain.RunReport, err error) {
	failed := len(report.Failed())
	logger.Info("run %s: %d files, %d changed, %d new items, %d failed, %d flagged for review in %s",
		report.ID, len(report.Files), report.Changed(), report.NewItems(), failed, len(report.Review),
		report.EndedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if err != nil {
		logger.Error("run %s aborted: %v", report.ID, err)
	}
}

// Status returns the last known state of a source.
func (t *Tracker) Status(ctx context.Context, sourceID string) (*driving.SyncStatus, error) {
	if _, err := t.sources.Get(ctx, sourceID); err != nil {
		return nil, err
	}

	t.mu.RLock()
	running := t.active[sourceID]
	t.mu.RUnlock()

	files, err := t.items.ListFiles(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	entries, err := t.items.IndexEntries(ctx, domain.IndexFilter{SourceIDs: []string{sourceID}})
	if err != nil {
		return nil, err
	}

	status := &driving.SyncStatus{
		SourceID: sourceID,
		Running:  running,
		Files:    len(files),
		Items:    len(entries),
	}
	if t.records != nil {
		record, err := t.records.Get(ctx, sourceID)
		switch {
		case err == nil:
			status.Record = record
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	return status, nil
}

func (t *Tracker) setActive(sources []domain.Source, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range sources {
		if running {
			t.active[s.Identifier] = true
		} else {
			delete(t.active, s.Identifier)
		}
	}
}

// contentHash returns the SHA-1 hex of a document.
func contentHash(content []byte) string {
	sum := sha1.Sum(content) //nolint:gosec // content hash, not a security boundary
	return hex.EncodeToString(sum[:])
}
