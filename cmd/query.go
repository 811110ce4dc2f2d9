// =============================================================================
// Freight Survey Ingest - Query Command
// =============================================================================
//
// This file defines the 'query' command, which reads a stored dataset.
//
// COMMAND USAGE:
//   freightingest query years        --dataset <id>
//   freightingest query municipality --dataset <id>
//   freightingest query lookup <category> --dataset <id>
//   freightingest query kpis         --dataset <id> [filter flags]
//   freightingest query subtrips     --dataset <id> [filter flags] [--page N] [--page-size N]
//
// Every subcommand prints plain text, or JSON with --json.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	queryDataset     string
	queryJSON        bool
	queryFilterFlags filterFlags
	queryPage        store.Page
)

// filterFlags binds the filter vocabulary to command flags.
type filterFlags struct {
	year            int
	emissionClass   string
	zoneOrigin      string
	zoneDestination string
	trade           string
	vehicleType     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "Survey year")
	cmd.Flags().StringVar(&f.emissionClass, "emission-class", "", "Emission-norm class, e.g. 6")
	cmd.Flags().StringVar(&f.zoneOrigin, "zone-origin", "", "Emission-zone value at the origin")
	cmd.Flags().StringVar(&f.zoneDestination, "zone-destination", "", "Emission-zone value at the destination")
	cmd.Flags().StringVar(&f.trade, "trade", "", `Trade direction, "import" or "export"`)
	cmd.Flags().StringVar(&f.vehicleType, "vehicle-type", "", "Vehicle-type code (sub-trips only)")
}

func (f filterFlags) filters() filter.Filters {
	return filter.Filters{
		Year:            f.year,
		EmissionClass:   f.emissionClass,
		ZoneOrigin:      f.zoneOrigin,
		ZoneDestination: f.zoneDestination,
		Trade:           filter.TradeDirection(f.trade),
		VehicleType:     f.vehicleType,
	}
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a stored dataset",
	Long: `The query command reads a dataset synced by 'ingest' from the configured
store. KPI and record queries accept the same filter flags as the report.`,
}

// kpis is the output of 'query kpis'.
type kpis struct {
	Shipments aggregate.ShipmentKPIs `json:"zendingen"`
	SubTrips  aggregate.SubTripKPIs  `json:"deelritten"`
}

var querySubcommands = []*cobra.Command{
	{
		Use:   "years",
		Short: "List the survey years of the dataset",
		Args:  cobra.NoArgs,
		RunE: queryRunner(func(ctx context.Context, st store.Store, id uuid.UUID, _ []string) (interface{}, error) {
			return st.Years(ctx, id)
		}),
	},
	{
		Use:   "municipality",
		Short: "Show the municipality of the dataset",
		Args:  cobra.NoArgs,
		RunE: queryRunner(func(ctx context.Context, st store.Store, id uuid.UUID, _ []string) (interface{}, error) {
			return st.Municipality(ctx, id)
		}),
	},
	{
		Use:   "lookup <category>",
		Short: "List one lookup table of the dataset",
		Args:  cobra.ExactArgs(1),
		RunE: queryRunner(func(ctx context.Context, st store.Store, id uuid.UUID, args []string) (interface{}, error) {
			category, ok := lookup.ParseCategory(args[0])
			if !ok {
				return nil, fmt.Errorf("unknown lookup category %q", args[0])
			}
			return st.LookupTable(ctx, id, category)
		}),
	},
	{
		Use:   "kpis",
		Short: "Show shipment and sub-trip KPIs",
		Args:  cobra.NoArgs,
		RunE: queryRunner(func(ctx context.Context, st store.Store, id uuid.UUID, _ []string) (interface{}, error) {
			f := queryFilterFlags.filters()
			var out kpis
			var err error
			if out.Shipments, err = st.ShipmentKPIs(ctx, id, f); err != nil {
				return nil, err
			}
			if out.SubTrips, err = st.SubTripKPIs(ctx, id, f); err != nil {
				return nil, err
			}
			return out, nil
		}),
	},
	{
		Use:   "subtrips",
		Short: "List one page of sub-trips",
		Args:  cobra.NoArgs,
		RunE: queryRunner(func(ctx context.Context, st store.Store, id uuid.UUID, _ []string) (interface{}, error) {
			return st.SubTrips(ctx, id, queryFilterFlags.filters(), queryPage)
		}),
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.PersistentFlags().StringVar(&queryDataset, "dataset", "", "Dataset ID printed by 'ingest'")
	queryCmd.PersistentFlags().BoolVar(&queryJSON, "json", false, "Print JSON")
	queryCmd.MarkPersistentFlagRequired("dataset")

	for _, sub := range querySubcommands {
		queryCmd.AddCommand(sub)
		switch sub.Name() {
		case "kpis":
			queryFilterFlags.register(sub)
		case "subtrips":
			queryFilterFlags.register(sub)
			sub.Flags().IntVar(&queryPage.Page, "page", 1, "Page number, starting at 1")
			sub.Flags().IntVar(&queryPage.PageSize, "page-size", 100, "Records per page (max 1000)")
		}
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

type queryFunc func(ctx context.Context, st store.Store, id uuid.UUID, args []string) (interface{}, error)

// queryRunner opens the configured store, runs q and prints its result.
func queryRunner(q queryFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.Driver == "" {
			return fmt.Errorf("no store configured (store.driver)")
		}
		id, err := uuid.Parse(queryDataset)
		if err != nil {
			return fmt.Errorf("invalid dataset id %q: %w", queryDataset, err)
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN, store.Options{Logger: log})
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := q(cmd.Context(), st, id, args)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result, queryJSON)
	}
}

// printResult writes a query result as JSON or as text.
func printResult(out io.Writer, result interface{}, asJSON bool) error {
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	switch v := result.(type) {
	case kpis:
		fmt.Fprintf(w, "Zendingen\t%.0f\n", v.Shipments.Count)
		fmt.Fprintf(w, "Bruto gewicht zendingen\t%.0f\n", v.Shipments.Weight)
		fmt.Fprintf(w, "Deelritten\t%.0f\n", v.SubTrips.Trips)
		fmt.Fprintf(w, "Bruto gewicht deelritten\t%.0f\n", v.SubTrips.Weight)
		fmt.Fprintf(w, "Beladingsgraad\t%.1f%%\n", v.SubTrips.LoadFactor*100)
	case store.SubTripPage:
		fmt.Fprintln(w, "JAAR\tVOERTUIGSOORT\tKLASSE\tDEELRITTEN\tBRUTO GEWICHT")
		for _, r := range v.Data {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%.0f\n", r.Year, r.VehicleType, r.LogisticsClass, r.TripCount, r.GrossWeight)
		}
		fmt.Fprintf(w, "\npage %d of %d (%d sub-trips)\n", v.Page, v.TotalPages, v.Total)
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return w.Flush()
}
