package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chscraper/pkg/auth"
	"chscraper/pkg/config"
	"chscraper/pkg/downloader"
	"chscraper/pkg/logger"
	"chscraper/pkg/scraper"
)

var (
	outputDir   string
	resumeFlag  bool
	forceFlag   bool
	dryRunFlag  bool
	dataOnly    bool
	categories  []string
	numbersFile string
	maxRetries  int
	apiKeyFlag  string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <company-number>...",
	Short: "Download all data and filing documents for one or more companies",
	Long: `Fetch the complete public record for each company number: profile,
officers, filing history, charges, insolvency, PSCs, UK establishments
and exemptions, then download the PDF behind every filing into
category directories with metadata sidecars.

Company numbers are zero-padded to 8 characters, so "123456" and
"00123456" refer to the same company.

Examples:
  chscraper scrape 00000006
  chscraper scrape 00000006 SC123456 --types accounts,confirmations
  chscraper scrape --file companies.txt --resume
  chscraper scrape 00000006 --dry-run`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && numbersFile == "" {
			return fmt.Errorf("requires at least one company number or --file")
		}
		return nil
	},
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./downloads)")
	scrapeCmd.Flags().BoolVar(&resumeFlag, "resume", false, "resume an interrupted run using the progress ledger")
	scrapeCmd.Flags().BoolVar(&forceFlag, "force", false, "re-download everything, discarding previous progress")
	scrapeCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "report what would be downloaded without fetching documents")
	scrapeCmd.Flags().BoolVar(&dataOnly, "data-only", false, "fetch and save JSON data but skip document downloads")
	scrapeCmd.Flags().StringSliceVar(&categories, "types", nil, "restrict downloads to categories (accounts, confirmations, incorporation, changes, mortgages, dissolutions, other)")
	scrapeCmd.Flags().StringVarP(&numbersFile, "file", "f", "", "read company numbers from a file, one per line")
	scrapeCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "override retry attempts for transient download failures")
	scrapeCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "Companies House API key (overrides stored credentials)")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cfg)

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	key, err := resolveAPIKey(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No API key found. Run 'chscraper auth login' to store one,")
		fmt.Fprintln(os.Stderr, "or set the COMPANIES_HOUSE_API_KEY environment variable.")
		fmt.Fprintln(os.Stderr)
		auth.ShowQuickAPIKeyGuide()
		return err
	}
	cfg.API.Key = key

	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, c := range categories {
		if !downloader.IsKnownCategory(strings.ToLower(c)) {
			return fmt.Errorf("unknown document category %q (valid: %s)",
				c, strings.Join(downloader.CategoryNames, ", "))
		}
	}

	numbers, err := collectCompanyNumbers(args)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create scraper: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := scraper.Options{
		Resume:     resumeFlag,
		Force:      forceFlag,
		DryRun:     dryRunFlag,
		DataOnly:   dataOnly,
		Categories: lowerAll(categories),
	}

	log.InfoWithFields("Starting scrape", map[string]interface{}{
		"companies": len(numbers),
		"output":    cfg.Output.BaseDirectory,
		"dry_run":   dryRunFlag,
	})

	start := time.Now()
	results, err := s.ScrapeCompanies(ctx, numbers, opts)
	if err != nil {
		return err
	}

	failed := printResults(results, time.Since(start))
	if failed > 0 {
		return fmt.Errorf("%d of %d companies failed", failed, len(results))
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Output.BaseDirectory = outputDir
	}
	if maxRetries > 0 {
		cfg.Download.MaxRetries = maxRetries
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// resolveAPIKey checks the --api-key flag, config/environment, then
// credentials stored via 'auth login', in that order.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if apiKeyFlag != "" {
		return apiKeyFlag, nil
	}
	if cfg.API.Key != "" {
		return cfg.API.Key, nil
	}

	mgr, err := auth.NewManager()
	if err != nil {
		return "", err
	}
	return mgr.ResolveAPIKey("")
}

// collectCompanyNumbers merges positional arguments with the --file list.
// Blank lines and '#' comments in the file are ignored.
func collectCompanyNumbers(args []string) ([]string, error) {
	numbers := append([]string{}, args...)

	if numbersFile != "" {
		f, err := os.Open(numbersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open company numbers file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			numbers = append(numbers, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read company numbers file: %w", err)
		}
	}

	if len(numbers) == 0 {
		return nil, fmt.Errorf("no company numbers provided")
	}
	return numbers, nil
}

func printResults(results []*scraper.Result, elapsed time.Duration) int {
	failed := 0
	fmt.Println()

	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", r.CompanyNumber, r.Err)
			continue
		}

		name := r.CompanyNumber
		if cn := companyName(r); cn != "" {
			name = fmt.Sprintf("%s (%s)", cn, r.CompanyNumber)
		}
		fmt.Printf("✓ %s\n", name)
		fmt.Printf("  Output: %s\n", r.OutputDir)

		if r.Downloads != nil {
			d := r.Downloads
			fmt.Printf("  Documents: %d succeeded, %d skipped, %d failed\n",
				d.Succeeded, d.Skipped, len(d.Failed))
			for _, f := range d.Failed {
				fmt.Printf("    ! %s: %s\n", f.DocumentID, f.Reason)
			}
		}
	}

	fmt.Printf("\nCompleted %d companies in %s (%d failed)\n",
		len(results), elapsed.Round(time.Second), failed)
	return failed
}

func companyName(r *scraper.Result) string {
	if r.Data == nil || len(r.Data.Profile) == 0 {
		return ""
	}
	var p struct {
		CompanyName string `json:"company_name"`
	}
	if err := json.Unmarshal(r.Data.Profile, &p); err != nil {
		return ""
	}
	return p.CompanyName
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
