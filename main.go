// =============================================================================
// Freight Survey Ingest - Main Entry Point
// =============================================================================
//
// USAGE:
//   freightingest ingest   - Process the files in the input directory
//   freightingest query    - Query a stored dataset
//   freightingest version  - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : parsers, classifier, lookup registry, enrichment,
//                  aggregation, filters, dataset session, store, report
//   - pkg/       : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/freight-survey-ingest/cmd"
)

func main() {
	cmd.Execute()
}
