// =============================================================================
// Freight Survey Ingest - Ingest Command
// =============================================================================
//
// This file defines the 'ingest' command, the main command of the tool. It
// runs one batch over every file in the input directory.
//
// COMMAND USAGE:
//   freightingest ingest [flags]
//
// FLAGS:
//   --dry-run   : Process without syncing, writing the report or archiving
//   --no-sync   : Skip the store even when one is configured
//   --year, --emission-class, --zone-origin, --zone-destination, --trade,
//   --vehicle-type : Restrict the records the report is computed from
//
// PROCESSING PIPELINE:
//   1. Load configuration and set up logging
//   2. Discover and read the files in the input directory
//   3. Run the batch converter (classify, reference data, parse and
//      enrich in parallel, commit year partitions)
//   4. Write the error log
//   5. Sync the dataset to the store
//   6. Write the XLSX report
//   7. Archive the processed inputs and write the summary log
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/freight-survey-ingest/internal/classifier"
	"github.com/ginjaninja78/freight-survey-ingest/internal/config"
	"github.com/ginjaninja78/freight-survey-ingest/internal/converter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/geo"
	"github.com/ginjaninja78/freight-survey-ingest/internal/logger"
	"github.com/ginjaninja78/freight-survey-ingest/internal/reportwriter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/store"
	"github.com/ginjaninja78/freight-survey-ingest/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type ingestOptions struct {
	// dryRun processes the batch without side effects outside the output
	// directory's logs.
	dryRun bool

	// noSync skips the store.
	noSync bool

	// filters restrict the report.
	filters filter.Filters
}

var (
	ingestOpts        ingestOptions
	ingestFilterFlags filterFlags
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process the survey exports and reference files in the input directory",
	Long: `The ingest command reads every file in the input directory, classifies it,
loads the reference tables, and parses and enriches the shipment and sub-trip
files into one dataset.

A bad file or a bad row never stops the run: it is reported and excluded.
With continue_on_error off, one failed file aborts the run and nothing is
stored.

On success:
  - The dataset is synced to the configured store
  - The XLSX report is placed in the output directory
  - The inputs are moved to the input archive (archive_on_success)
  - A JSON summary is written to the output directory

Diagnostics of every file are written to an error log in the output directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := ingestOpts
		opts.filters = ingestFilterFlags.filters()
		_, err = runIngest(ctx, cfg, log, opts, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(
		&ingestOpts.dryRun,
		"dry-run",
		false,
		"Process without syncing, writing the report or archiving",
	)

	ingestCmd.Flags().BoolVar(
		&ingestOpts.noSync,
		"no-sync",
		false,
		"Skip the store even when one is configured",
	)

	ingestFilterFlags.register(ingestCmd)
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// runSummary is the outcome of an ingest run, written as the summary log.
type runSummary struct {
	*converter.Summary

	Synced     bool     `json:"synced"`
	ReportFile string   `json:"report_file,omitempty"`
	ErrorLog   string   `json:"error_log,omitempty"`
	Archived   []string `json:"archived,omitempty"`
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runIngest orchestrates one ingest run.
func runIngest(ctx context.Context, cfg *config.Config, log logger.Logger, opts ingestOptions, out io.Writer) (*runSummary, error) {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.ArchiveOnSuccess && !opts.dryRun)
	if err := fm.EnsureDirectories(); err != nil {
		return nil, err
	}

	paths, err := fm.DiscoverInputFiles("")
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No files found in the input directory.")
		return nil, nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(paths))

	files, err := utils.ReadInputs(paths)
	if err != nil {
		return nil, err
	}
	inputs := make([]converter.Input, len(files))
	for i, f := range files {
		inputs[i] = converter.Input{Name: f.Name, Content: f.Content}
	}

	// =========================================================================
	// STEP 2: RUN THE BATCH
	// =========================================================================

	session := dataset.New()
	conv := converter.New(session, converter.Options{
		Delimiter:       cfg.CSV.Rune(),
		MaxConcurrency:  cfg.MaxConcurrency,
		ContinueOnError: cfg.ContinueOnError,
		Resolver:        geo.NewResolver(cfg.DomesticCountry, cfg.RegionKeyPrefix),
	}, log)

	summary, runErr := conv.Run(ctx, inputs)
	if summary == nil {
		return nil, runErr
	}
	result := &runSummary{Summary: summary}

	for _, r := range summary.Results {
		fmt.Fprintf(out, "  %s %s: %s\n", statusMark(r.Status), r.File, r.Message)
	}

	// =========================================================================
	// STEP 3: ERROR LOG
	// =========================================================================

	if result.ErrorLog, err = utils.WriteErrorLog(errorLogEntries(summary.Results), cfg.OutputDir); err != nil {
		log.Errorf("Failed to write error log: %v", err)
	}
	if runErr != nil {
		return result, runErr
	}

	// =========================================================================
	// STEP 4: STORE
	// =========================================================================

	if cfg.Store.Driver != "" && !opts.dryRun && !opts.noSync {
		result.Synced, err = syncSession(ctx, cfg, log, session)
		if err != nil {
			return result, err
		}
	}

	// =========================================================================
	// STEP 5: REPORT
	// =========================================================================

	if cfg.Report.File != "" && !opts.dryRun {
		if result.ReportFile, err = writeReport(cfg, session, summary.Results, opts.filters); err != nil {
			return result, err
		}
		log.Infof("Report written to %s", result.ReportFile)
	}

	// =========================================================================
	// STEP 6: ARCHIVE AND SUMMARY
	// =========================================================================
	// Failed files stay in the input directory.

	if fm.ArchiveOnSuccess {
		for i, r := range summary.Results {
			if r.Status == classifier.StatusError {
				continue
			}
			archived, err := fm.ArchiveInputFile(files[i].Path)
			if err != nil {
				log.Errorf("Failed to archive %s: %v", files[i].Name, err)
				continue
			}
			result.Archived = append(result.Archived, archived)
		}
	}

	if path, err := utils.WriteSummaryLog(result, cfg.OutputDir); err != nil {
		log.Errorf("Failed to write summary log: %v", err)
	} else {
		log.Debugf("Summary written to %s", path)
	}

	valid, warning, failed := summary.Counts()
	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Dataset:         %s\n", summary.DatasetID)
	if summary.Municipality != nil {
		fmt.Fprintf(out, "Municipality:    %s (%s)\n", summary.Municipality.Name, summary.Municipality.Code)
	}
	fmt.Fprintf(out, "Years:           %v\n", summary.Years)
	fmt.Fprintf(out, "Files:           %d valid, %d warning, %d error\n", valid, warning, failed)
	fmt.Fprintf(out, "Records:         %d shipments, %d sub-trips\n", summary.Shipments, summary.SubTrips)
	fmt.Fprintf(out, "Stored:          %t\n", result.Synced)
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(startTime))
	if result.ErrorLog != "" {
		fmt.Fprintf(out, "\nDiagnostics have been logged to %s\n", result.ErrorLog)
	}

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// syncSession writes the session to the configured store. A session without
// a detected municipality cannot be stored and is skipped.
func syncSession(ctx context.Context, cfg *config.Config, log logger.Logger, session *dataset.Session) (bool, error) {
	ds, err := store.FromSession(session)
	if errors.Is(err, store.ErrInvalidDataset) {
		log.Warnf("Dataset not stored: %v", err)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN, store.Options{
		ChunkSize:  cfg.Store.ChunkSize,
		MaxRetries: cfg.Store.MaxRetries,
		Logger:     log,
	})
	if err != nil {
		return false, err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return false, err
	}
	if err := st.Sync(ctx, ds); err != nil {
		return false, err
	}
	return true, nil
}

// writeReport renders the report into the output directory.
func writeReport(cfg *config.Config, session *dataset.Session, results []converter.Result, filters filter.Filters) (string, error) {
	municipality := "onbekend"
	if m, ok := session.Municipality(); ok {
		municipality = m.Code
	}

	data, err := reportwriter.Generate(
		reportwriter.Input{Session: session, Results: results, Filters: filters},
		reportwriter.Options{Domestic: cfg.DomesticCountry},
	)
	if err != nil {
		return "", err
	}

	name := utils.GenerateOutputFileName(cfg.Report.File, ".xlsx", map[string]string{
		"municipality": municipality,
		"dataset":      session.ID().String(),
	})
	path := filepath.Join(cfg.OutputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// errorLogEntries lists failed files and every collected issue.
func errorLogEntries(results []converter.Result) []utils.ErrorLogEntry {
	now := time.Now()
	var entries []utils.ErrorLogEntry
	for _, r := range results {
		if r.Status == classifier.StatusError {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp: now,
				FileName:  r.File,
				Severity:  string(classifier.StatusError),
				Message:   r.Message,
			})
		}
		for _, issue := range r.Issues {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp: now,
				FileName:  r.File,
				Severity:  string(issue.Severity),
				Message:   issue.Message,
				RowNumber: issue.Row,
				FieldName: issue.Field,
			})
		}
	}
	return entries
}

func statusMark(s classifier.Status) string {
	switch s {
	case classifier.StatusValid:
		return "✓"
	case classifier.StatusWarning:
		return "!"
	}
	return "✗"
}
