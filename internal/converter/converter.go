// =============================================================================
// Freight Survey Ingest - Converter Module
// =============================================================================
//
// This module orchestrates one processing run over a batch of uploaded files
// and commits the outcome to a dataset session.
//
// PROCESSING PIPELINE:
//   1. Classify every file (role + status)
//   2. Load reference data into a staged copy of the session registry:
//        a. full lookup workbook
//        b. embedded codetables
//        c. region mapping workbook
//        d. municipal code table CSV
//        e. logistics class code table CSV
//   3. Parse and enrich shipment and sub-trip files, in parallel
//   4. Partition the records by survey year
//   5. Commit registry, region mappings and year partitions to the session
//   6. Detect the municipality
//
// ERROR HANDLING:
//   A bad file or a bad row never stops the run: it is reported in the
//   file's Result and excluded. Nothing is committed when the run itself
//   fails (empty input, cancellation, or a failed file with
//   ContinueOnError off), so the session is left exactly as it was.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/classifier"
	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/enrich"
	"github.com/ginjaninja78/freight-survey-ingest/internal/geo"
	"github.com/ginjaninja78/freight-survey-ingest/internal/logger"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
)

// ErrEmptyInput is returned when a run is started without files.
var ErrEmptyInput = errors.New("no input files")

// ErrFileFailed is returned when a file failed and ContinueOnError is off.
var ErrFileFailed = errors.New("file processing failed")

// =============================================================================
// INPUT AND RESULT STRUCTURES
// =============================================================================

// Input is one uploaded file, already read into memory.
type Input struct {
	Name    string
	Content []byte
}

// Result represents the outcome of processing a single file.
type Result struct {
	// File is the name the file was uploaded under.
	File string `json:"file"`

	// Role is the classified role.
	Role classifier.Role `json:"role"`

	// Status is "valid", "warning" or "error".
	Status classifier.Status `json:"status"`

	// Message explains the status.
	Message string `json:"message"`

	// Year is the survey year of a data file, 0 otherwise.
	Year int `json:"year,omitempty"`

	// Records is the number of records or lookup entries the file produced.
	Records int `json:"records"`

	// Issues are the diagnostics collected for the file.
	Issues []validation.Issue `json:"issues,omitempty"`

	// Completeness is the fill rate of the key columns of a data file.
	Completeness []aggregate.Completeness `json:"completeness,omitempty"`
}

// Detection returns the detected-files entry for the result.
func (r Result) Detection() classifier.Detection {
	return classifier.Detection{
		Name:    r.File,
		Role:    r.Role,
		Status:  r.Status,
		Message: r.Message,
		Year:    r.Year,
	}
}

func (r *Result) warn(format string, args ...interface{}) {
	if r.Status == classifier.StatusValid {
		r.Status = classifier.StatusWarning
	}
	r.Message = fmt.Sprintf(format, args...)
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Status = classifier.StatusError
	r.Message = fmt.Sprintf(format, args...)
}

// Summary is the outcome of a run.
type Summary struct {
	DatasetID    uuid.UUID           `json:"dataset_id"`
	Results      []Result            `json:"results"`
	Years        []int               `json:"years"`
	Municipality *types.Municipality `json:"municipality,omitempty"`
	Shipments    int                 `json:"shipments"`
	SubTrips     int                 `json:"sub_trips"`
	Duration     time.Duration       `json:"duration"`
}

// Counts returns the number of valid, warning and failed files.
func (s Summary) Counts() (valid, warning, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case classifier.StatusValid:
			valid++
		case classifier.StatusWarning:
			warning++
		default:
			failed++
		}
	}
	return valid, warning, failed
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configure a Converter.
type Options struct {
	// Delimiter separates fields of delimited files (0 selects ';').
	Delimiter rune

	// MaxConcurrency bounds the data files processed at the same time.
	MaxConcurrency int

	// ContinueOnError commits the valid files of a run in which other
	// files failed.
	ContinueOnError bool

	// Resolver derives geographic keys and trade flags.
	Resolver geo.Resolver
}

// Converter runs batches of files into one dataset session.
type Converter struct {
	session *dataset.Session
	opts    Options
	logger  logger.Logger
}

// New creates a Converter for a session. A nil logger discards output.
func New(session *dataset.Session, opts Options, log logger.Logger) *Converter {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.Resolver.Domestic == "" {
		opts.Resolver = geo.NewResolver("", "")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{session: session, opts: opts, logger: log}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run processes a batch of files and commits the outcome to the session.
//
// PARAMETERS:
//   - ctx: Cancels the parallel data stage. A cancelled run commits nothing.
//   - inputs: The uploaded files, in upload order.
//
// RETURNS:
//   - A Summary with one Result per input, in input order.
//   - ErrEmptyInput, ErrFileFailed or the context error when nothing was
//     committed.
func (c *Converter) Run(ctx context.Context, inputs []Input) (*Summary, error) {
	start := time.Now()
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}

	// =========================================================================
	// STEP 1: CLASSIFY
	// =========================================================================

	results := make([]Result, len(inputs))
	for i, in := range inputs {
		det := classifier.Classify(in.Name, in.Content, c.opts.Delimiter)
		results[i] = Result{
			File:    det.Name,
			Role:    det.Role,
			Status:  det.Status,
			Message: det.Message,
			Year:    det.Year,
		}
		c.logger.Debugf("Classified %s as %s (%s)", in.Name, det.Role, det.Status)
	}

	// =========================================================================
	// STEP 2: REFERENCE DATA
	// =========================================================================
	// Loaders write into a clone so a failed run leaves the session's
	// registry untouched.

	registry := c.session.Registry().Clone()
	var regions []types.RegionMapping
	for _, role := range referenceOrder {
		for i := range inputs {
			if results[i].Role != role {
				continue
			}
			loaded := loadReference(registry, &results[i], inputs[i].Content, c.opts.Delimiter)
			if loaded != nil {
				regions = loaded
			}
			c.logger.Infof("Loaded %s: %d entries", inputs[i].Name, results[i].Records)
		}
	}

	// =========================================================================
	// STEP 3: PARSE AND ENRICH DATA FILES
	// =========================================================================

	enricher := enrich.New(registry, c.opts.Resolver)
	parsed := make([]parsedFile, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrency)
	for i := range inputs {
		if !results[i].Role.IsData() {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = transform(enricher, &results[i], inputs[i].Content, c.opts.Delimiter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process data files: %w", err)
	}

	// =========================================================================
	// STEP 4: PARTITION BY YEAR
	// =========================================================================
	// Files are applied in upload order, so the last file for a year wins.

	batch := dataset.Batch{
		Registry:  registry,
		Regions:   regions,
		Shipments: make(map[int][]types.ShipmentRecord),
		SubTrips:  make(map[int][]types.SubTripRecord),
	}
	for i := range parsed {
		p := &parsed[i]
		switch p.kind {
		case types.KindShipment:
			batch.Shipments[p.year] = p.shipments
		case types.KindSubTrip:
			batch.SubTrips[p.year] = p.subTrips
		}
	}

	summary := &Summary{Results: results}
	for _, r := range results {
		if r.Status == classifier.StatusError {
			c.logger.Errorf("%s: %s", r.File, r.Message)
			if !c.opts.ContinueOnError {
				return summary, fmt.Errorf("%w: %s: %s", ErrFileFailed, r.File, r.Message)
			}
		} else if r.Status == classifier.StatusWarning {
			c.logger.Warnf("%s: %s", r.File, r.Message)
		}
		batch.Files = append(batch.Files, r.Detection())
	}

	// =========================================================================
	// STEP 5: COMMIT
	// =========================================================================

	c.session.Commit(batch)

	if m, ok := c.session.DetectMunicipality(); ok {
		summary.Municipality = &m
		c.logger.Infof("Municipality: %s (%s)", m.Name, m.Code)
	}

	summary.DatasetID = c.session.ID()
	summary.Years = c.session.Years()
	for _, y := range summary.Years {
		summary.Shipments += len(c.session.Shipments(y))
		summary.SubTrips += len(c.session.SubTrips(y))
	}
	summary.Duration = time.Since(start)

	valid, warning, failed := summary.Counts()
	c.logger.Infof("Processed %d files (%d valid, %d warning, %d error) in %s",
		len(results), valid, warning, failed, summary.Duration)

	return summary, nil
}

// referenceOrder is the order reference files are applied in. Later loads
// replace the categories they carry.
var referenceOrder = []classifier.Role{
	classifier.RoleReferenceLookupWorkbook,
	classifier.RoleMunicipalCodetableWorkbook,
	classifier.RoleRegionMappingWorkbook,
	classifier.RoleMunicipalCodeTable,
	classifier.RoleLogisticsClassCodeTable,
}

// lookupCount is the number of entries across categories.
func lookupCount(r *lookup.Registry, categories []lookup.Category) int {
	n := 0
	for _, c := range categories {
		n += len(r.Entries(c))
	}
	return n
}
