package scraper

import (
	"context"
	"fmt"

	"chscraper/pkg/companieshouse"
	"chscraper/pkg/config"
	"chscraper/pkg/downloader"
	"chscraper/pkg/ledger"
	"chscraper/pkg/logger"
	"chscraper/pkg/metadata"
	"chscraper/pkg/ratelimit"
	"chscraper/pkg/report"
	"chscraper/pkg/storage"
	"chscraper/pkg/validate"
)

// Scraper runs the full pipeline for a company: fetch every data endpoint,
// persist the JSON, download the filing documents, and write summary.txt.
// One limiter is shared across all of it because the Data and Document
// APIs draw from the same quota.
type Scraper struct {
	client  *companieshouse.Client
	limiter ratelimit.Limiter
	config  *config.Config
	logger  logger.Logger
}

// Options controls what a scrape run does
type Options struct {
	// Resume continues an interrupted run using the progress ledger
	Resume bool
	// Force re-downloads everything, discarding previous progress
	Force bool
	// DryRun reports what would be downloaded without fetching documents
	DryRun bool
	// Categories restricts document downloads to the named categories
	Categories []string
	// DataOnly fetches and saves the JSON data but skips documents
	DataOnly bool
}

// Result is the outcome of scraping one company
type Result struct {
	CompanyNumber string
	OutputDir     string
	Data          *companieshouse.CompanyData
	Downloads     *downloader.Summary
	Err           error
}

// New creates a Scraper from configuration
func New(cfg *config.Config) (*Scraper, error) {
	log := logger.GetLogger()

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	client, err := companieshouse.NewClient(companieshouse.Options{
		APIKey:          cfg.API.Key,
		DataBaseURL:     cfg.API.DataBaseURL,
		DocumentBaseURL: cfg.API.DocumentBaseURL,
		UserAgent:       cfg.API.UserAgent,
		Timeout:         cfg.API.Timeout,
		DownloadTimeout: cfg.Download.DownloadTimeout,
		ItemsPerPage:    cfg.API.ItemsPerPage,
		Limiter:         limiter,
		Logger:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &Scraper{
		client:  client,
		limiter: limiter,
		config:  cfg,
		logger:  log,
	}, nil
}

// ScrapeCompany runs the full pipeline for one company
func (s *Scraper) ScrapeCompany(ctx context.Context, companyNumber string, opts Options) (*Result, error) {
	companyNumber, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewManager(s.config.Output.BaseDirectory, companyNumber)
	if err != nil {
		return nil, err
	}

	result := &Result{
		CompanyNumber: companyNumber,
		OutputDir:     store.Dir(),
	}

	data, err := s.client.GetAllData(ctx, companyNumber)
	if err != nil {
		return nil, err
	}
	result.Data = data

	if err := metadata.SaveCompanyData(store.Dir(), data); err != nil {
		// Persisting the JSON is best-effort; documents can still proceed
		s.logger.WithError(err).WarnWithFields("failed to save company data", map[string]interface{}{
			"company_number": companyNumber,
		})
	}

	if !opts.DataOnly {
		summary, err := s.downloadDocuments(ctx, companyNumber, store, data, opts)
		if err != nil {
			return result, err
		}
		result.Downloads = summary
	}

	if err := report.WriteSummary(store.Dir(), data, result.Downloads); err != nil {
		s.logger.WithError(err).WarnWithFields("failed to write summary", map[string]interface{}{
			"company_number": companyNumber,
		})
	}

	return result, nil
}

// downloadDocuments runs the document orchestrator for a company
func (s *Scraper) downloadDocuments(ctx context.Context, companyNumber string, store *storage.Manager, data *companieshouse.CompanyData, opts Options) (*downloader.Summary, error) {
	tasks := downloader.FilingTasks(data.FilingHistory)
	if len(tasks) == 0 {
		s.logger.InfoWithFields("no downloadable documents", map[string]interface{}{
			"company_number": companyNumber,
		})
		return &downloader.Summary{CompanyNumber: companyNumber, Failed: []downloader.TaskFailure{}, ByCategory: map[string]int{}}, nil
	}

	fetcher := downloader.NewFetcher(s.client, store, s.config.Download.MaxFileSize, s.config.Download.FetchXBRL, s.logger)

	orch := downloader.NewOrchestrator(downloader.Config{
		CompanyNumber: companyNumber,
		Fetcher:       fetcher,
		Storage:       store,
		Ledger:        ledger.NewManager(store.Dir()),
		MaxRetries:    s.config.Download.MaxRetries,
		RetryDelay:    s.config.Download.RetryDelay,
		Logger:        s.logger,
	})

	return orch.Run(ctx, tasks, downloader.Options{
		Resume:     opts.Resume,
		Force:      opts.Force,
		DryRun:     opts.DryRun,
		Categories: opts.Categories,
	})
}

// ScrapeCompanies runs the pipeline for several companies. A failing
// company is recorded in its Result and the run moves on; only context
// cancellation stops the batch.
func (s *Scraper) ScrapeCompanies(ctx context.Context, companyNumbers []string, opts Options) ([]*Result, error) {
	results := make([]*Result, 0, len(companyNumbers))

	for _, number := range companyNumbers {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, err := s.ScrapeCompany(ctx, number, opts)
		if err != nil {
			if result == nil {
				result = &Result{CompanyNumber: number}
			}
			result.Err = err
			s.logger.ErrorWithFields("company scrape failed", map[string]interface{}{
				"company_number": number,
				"error":          err.Error(),
			})
		}
		results = append(results, result)
	}

	return results, nil
}
