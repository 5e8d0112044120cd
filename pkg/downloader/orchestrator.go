package downloader

import (
	"context"
	"time"

	"chscraper/pkg/companieshouse"
	"chscraper/pkg/ledger"
	"chscraper/pkg/logger"
	"chscraper/pkg/metadata"
	"chscraper/pkg/retry"
	"chscraper/pkg/storage"
)

// Options controls a download run
type Options struct {
	// Resume skips documents the progress ledger already records as
	// downloaded, after reconciling the ledger against the filesystem
	Resume bool
	// Force re-downloads documents even when a valid copy exists on disk
	Force bool
	// DryRun lists what would be downloaded without fetching anything
	DryRun bool
	// Categories restricts the run to the named categories; empty means all
	Categories []string
}

// TaskFailure records one document that could not be downloaded
type TaskFailure struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// Summary is the outcome of a download run
type Summary struct {
	CompanyNumber string         `json:"company_number"`
	Attempted     int            `json:"attempted"`
	Succeeded     int            `json:"succeeded"`
	Skipped       int            `json:"skipped"`
	Failed        []TaskFailure  `json:"failed"`
	ByCategory    map[string]int `json:"by_category"`
	Duration      time.Duration  `json:"duration"`
}

// Orchestrator runs document download tasks for one company: it
// categorizes each task, picks a collision-free path, retries transient
// failures, and records every outcome in the progress ledger. One failing
// document never stops the run.
type Orchestrator struct {
	companyNumber string
	fetcher       *Fetcher
	storage       *storage.Manager
	ledger        *ledger.Manager
	retryCfg      retry.Config
	logger        logger.Logger
}

// Config assembles an orchestrator
type Config struct {
	CompanyNumber string
	Fetcher       *Fetcher
	Storage       *storage.Manager
	Ledger        *ledger.Manager
	MaxRetries    int
	RetryDelay    time.Duration
	Logger        logger.Logger
}

// NewOrchestrator creates a download orchestrator for one company
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	return &Orchestrator{
		companyNumber: cfg.CompanyNumber,
		fetcher:       cfg.Fetcher,
		storage:       cfg.Storage,
		ledger:        cfg.Ledger,
		retryCfg: retry.Config{
			MaxAttempts: cfg.MaxRetries,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:  cfg.RetryDelay,
				MaxDelay:   30 * time.Second,
				Multiplier: 2.0,
			},
			Logger: cfg.Logger,
		},
		logger: cfg.Logger,
	}
}

// Run executes every task and returns a summary. Individual task failures
// are collected, not propagated; only context cancellation aborts the run.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task, opts Options) (*Summary, error) {
	start := time.Now()

	summary := &Summary{
		CompanyNumber: o.companyNumber,
		Failed:        []TaskFailure{},
		ByCategory:    make(map[string]int),
	}

	state := o.prepareState(opts)
	state.ExpectedTotal = len(tasks)

	o.logger.InfoWithFields("starting document downloads", map[string]interface{}{
		"company_number": o.companyNumber,
		"tasks":          len(tasks),
		"resume":         opts.Resume,
		"dry_run":        opts.DryRun,
	})

	for i := range tasks {
		task := &tasks[i]

		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		if !categoryAllowed(task.Category, opts.Categories) {
			summary.Skipped++
			continue
		}

		if opts.Resume && state.IsCompleted(task.DocumentID) {
			o.logger.DebugWithFields("already downloaded, skipping", map[string]interface{}{
				"document_id": task.DocumentID,
			})
			summary.Skipped++
			continue
		}

		if !opts.Force {
			if existing, ok := o.storage.FindDocument(task.DocumentID); ok {
				o.logger.DebugWithFields("valid copy already on disk, skipping", map[string]interface{}{
					"document_id": task.DocumentID,
					"path":        existing,
				})
				if !state.IsCompleted(task.DocumentID) {
					o.recordSuccess(state, task.DocumentID)
				}
				summary.Skipped++
				continue
			}
		}

		if opts.DryRun {
			o.logger.InfoWithFields("would download", map[string]interface{}{
				"document_id": task.DocumentID,
				"category":    task.Category,
				"filename":    task.Filename(),
			})
			summary.Skipped++
			continue
		}

		summary.Attempted++
		if err := o.downloadTask(ctx, task, state, summary); err != nil {
			summary.Failed = append(summary.Failed, TaskFailure{
				DocumentID: task.DocumentID,
				Reason:     err.Error(),
			})
			o.recordFailure(state, task.DocumentID, err.Error())
			o.logger.ErrorWithFields("document download failed", map[string]interface{}{
				"document_id": task.DocumentID,
				"error":       err.Error(),
			})
		}
	}

	summary.Duration = time.Since(start)

	o.logger.InfoWithFields("document downloads finished", map[string]interface{}{
		"company_number": o.companyNumber,
		"attempted":      summary.Attempted,
		"succeeded":      summary.Succeeded,
		"failed":         len(summary.Failed),
		"skipped":        summary.Skipped,
		"duration":       summary.Duration.String(),
	})

	return summary, nil
}

// prepareState loads or resets the progress ledger for this run. Only a
// resume run reads the prior ledger; otherwise the run starts from an
// empty state and the old file is overwritten with the first new outcome.
func (o *Orchestrator) prepareState(opts Options) *ledger.State {
	if opts.Force {
		if err := o.ledger.Delete(); err != nil {
			o.logger.WithError(err).Warn("failed to reset progress ledger")
		}
		return ledger.NewState(o.companyNumber)
	}
	if !opts.Resume {
		return ledger.NewState(o.companyNumber)
	}

	state := o.ledger.Load(o.companyNumber)

	dropped := o.ledger.ReconcileWithDisk(state, func(documentID string) bool {
		_, ok := o.storage.FindDocument(documentID)
		return ok
	})
	if dropped > 0 {
		o.logger.InfoWithFields("re-queued documents missing from disk", map[string]interface{}{
			"count": dropped,
		})
	}

	return state
}

// downloadTask fetches one document with retries and writes its sidecar
func (o *Orchestrator) downloadTask(ctx context.Context, task *Task, state *ledger.State, summary *Summary) error {
	destPath, err := o.storage.UniquePath(task.Category, task.Filename())
	if err != nil {
		return err
	}

	retryCfg := o.retryCfg
	retryCfg.Context = ctx
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		o.logger.WarnWithFields("retrying document download", map[string]interface{}{
			"document_id": task.DocumentID,
			"attempt":     attempt,
			"delay":       delay.String(),
			"error":       err.Error(),
		})
	}

	result, err := retry.DoWithResult(func() (*FetchResult, error) {
		return o.fetcher.Fetch(ctx, task, destPath)
	}, &retryCfg)
	if err != nil {
		return err
	}

	sidecar := metadata.FromFiling(&task.Filing, result.Metadata, o.companyNumber, task.Category, result.ContentType, result.Size)
	if err := metadata.SaveSidecar(sidecar, destPath); err != nil {
		o.logger.WithError(err).WarnWithFields("failed to write metadata sidecar", map[string]interface{}{
			"document_id": task.DocumentID,
		})
	}

	o.recordSuccess(state, task.DocumentID)
	summary.Succeeded++
	summary.ByCategory[task.Category]++

	o.logger.InfoWithFields("document downloaded", map[string]interface{}{
		"document_id": task.DocumentID,
		"path":        result.Path,
		"size":        result.Size,
		"xbrl":        result.XBRLPath != "",
	})

	return nil
}

func (o *Orchestrator) recordSuccess(state *ledger.State, documentID string) {
	if err := o.ledger.RecordSuccess(state, documentID); err != nil {
		o.logger.WithError(err).Warn("failed to record success in progress ledger")
	}
}

func (o *Orchestrator) recordFailure(state *ledger.State, documentID, reason string) {
	if err := o.ledger.RecordFailure(state, documentID, reason); err != nil {
		o.logger.WithError(err).Warn("failed to record failure in progress ledger")
	}
}

func categoryAllowed(category string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == category {
			return true
		}
	}
	return false
}

// FilingTasks is a convenience that parses filing history into tasks
func FilingTasks(history *companieshouse.List) []Task {
	return TasksFromFilings(companieshouse.ParseFilings(history))
}
