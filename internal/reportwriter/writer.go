// =============================================================================
// Freight Survey Ingest - Report Writer Module
// =============================================================================
//
// This module renders a dataset session into an XLSX workbook for the
// presentation side. Every sheet is computed from the committed records with
// the aggregation engine, after applying the report filters.
//
// WORKBOOK STRUCTURE:
//
//   Overzicht       dataset, municipality, years and headline KPIs of the
//                   report year
//   Trends          one row per year: trips, km within the municipality,
//                   Euro 6 share, shipments and shipment weight
//   Beladingsgraad  load factor per logistics class per year (top 10)
//   Klassen         shipments and sub-trips per logistics class of the
//                   report year, national sub-trips per class per year
//   Verdelingen     fuel, weight class, vehicle and emission zone
//                   distributions of the report year
//   Voertuigen      share of national sub-trips per vehicle type per year
//   Regios          origin regions of inbound and destination regions of
//                   outbound shipments, top region pairs
//   Postcodes       sub-trips per PC4 and PC6 area of origin and
//                   destination
//   Landen          international shipments per foreign country
//   Bestanden       detected files with role and status
//   Volledigheid    fill rate of the key columns per data file
//
// The report year is the filter year when set, else the latest year.
//
// =============================================================================

package reportwriter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/converter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// Row limits of the ranked sections.
const (
	topPairs = 10
	topPC6   = 25
)

// Sheet names of the report.
const (
	SheetOverview     = "Overzicht"
	SheetTrends       = "Trends"
	SheetLoadFactor   = "Beladingsgraad"
	SheetClasses      = "Klassen"
	SheetDistribution = "Verdelingen"
	SheetVehicles     = "Voertuigen"
	SheetRegions      = "Regios"
	SheetPostalAreas  = "Postcodes"
	SheetCountries    = "Landen"
	SheetFiles        = "Bestanden"
	SheetCompleteness = "Volledigheid"
)

// =============================================================================
// REPORT OPTIONS
// =============================================================================

// Input is what a report is generated from.
type Input struct {
	// Session holds the committed records.
	Session *dataset.Session

	// Results are the per-file outcomes of the last run. They feed the
	// completeness sheet and may be empty.
	Results []converter.Result

	// Filters restrict the records every sheet is computed from.
	Filters filter.Filters
}

// Options contains options for report generation.
type Options struct {
	// Domestic is the country excluded from the per-country sheet.
	// Default: "NL"
	Domestic string

	// Now stamps the report. Default: time.Now
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Domestic == "" {
		o.Domestic = "NL"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// =============================================================================
// REPORT GENERATION
// =============================================================================

// Generate renders the report and returns the XLSX bytes.
//
// GENERATION PROCESS:
//  1. Validate the filters and pick the report year
//  2. Filter every year partition once
//  3. Write each sheet in order
//  4. Serialize the workbook
func Generate(in Input, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if err := in.Filters.Validate(); err != nil {
		return nil, fmt.Errorf("report filters: %w", err)
	}

	r := newReport(in, opts)

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	sheets := []struct {
		name  string
		write func(*sheetWriter)
	}{
		{SheetOverview, r.overview},
		{SheetTrends, r.trends},
		{SheetLoadFactor, r.loadFactor},
		{SheetClasses, r.classes},
		{SheetDistribution, r.distributions},
		{SheetVehicles, r.vehicles},
		{SheetRegions, r.regions},
		{SheetPostalAreas, r.postalAreas},
		{SheetCountries, r.countries},
		{SheetFiles, r.files},
		{SheetCompleteness, r.completeness},
	}

	for i, s := range sheets {
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), s.name)
		} else {
			_, err = f.NewSheet(s.name)
		}
		if err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}

		w := &sheetWriter{f: f, sheet: s.name, styles: styles}
		s.write(w)
		if w.err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", s.name, w.err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize report: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// REPORT DATA
// =============================================================================

type report struct {
	in   Input
	opts Options

	municipality types.Municipality
	hasMunicipal bool
	years        []int
	year         int

	shipments map[int][]types.ShipmentRecord
	subTrips  map[int][]types.SubTripRecord
}

func newReport(in Input, opts Options) *report {
	r := &report{in: in, opts: opts, years: in.Session.Years()}
	r.municipality, r.hasMunicipal = in.Session.Municipality()

	// Partitions are filtered without the year option; the trends span
	// every year.
	perYear := in.Filters
	perYear.Year = 0

	r.shipments = make(map[int][]types.ShipmentRecord)
	for y, records := range in.Session.ShipmentsByYear() {
		if in.Filters.Year == 0 || y == in.Filters.Year {
			r.shipments[y] = filter.Apply(records, perYear)
		}
	}
	r.subTrips = make(map[int][]types.SubTripRecord)
	for y, records := range in.Session.SubTripsByYear() {
		if in.Filters.Year == 0 || y == in.Filters.Year {
			r.subTrips[y] = filter.Apply(records, perYear)
		}
	}

	r.year = in.Filters.Year
	if r.year == 0 && len(r.years) > 0 {
		r.year = r.years[len(r.years)-1]
	}
	return r
}

func (r *report) overview(w *sheetWriter) {
	municipality := "onbekend"
	if r.hasMunicipal {
		municipality = fmt.Sprintf("%s (%s)", r.municipality.Name, r.municipality.Code)
	}

	w.row(w.styles.bold, "Dataset", r.in.Session.ID().String())
	w.row(0, "Gemeente", municipality)
	w.row(0, "Jaren", joinYears(r.years))
	w.row(0, "Rapportjaar", r.year)
	w.row(0, "Filters", describeFilters(r.in.Filters))
	w.row(0, "Gegenereerd", r.opts.Now().Format(time.DateTime))
	w.skip()

	shipments := r.shipments[r.year]
	subTrips := r.subTrips[r.year]
	sk := aggregate.SumShipmentKPIs(shipments)
	tk := aggregate.SumSubTripKPIs(subTrips)
	trade := aggregate.ImportExportShare(shipments)

	w.row(w.styles.header, "Kengetal", "Waarde")
	w.row(0, "Zendingen", sk.Count)
	w.row(0, "Bruto gewicht zendingen (kg)", sk.Weight)
	w.row(0, "Deelritten", tk.Trips)
	w.row(0, "Bruto gewicht deelritten (kg)", tk.Weight)
	w.percentRow("Beladingsgraad", tk.LoadFactor)
	w.percentRow("Aandeel Euro 6", aggregate.Euro6Share(subTrips))
	w.percentRow("Aandeel lege ritten", aggregate.EmptyTripShare(subTrips))
	w.percentRow("Aandeel import", trade.Import)
	w.percentRow("Aandeel export", trade.Export)
	w.width("A", 32)
	w.width("B", 40)
}

func (r *report) trends(w *sheetWriter) {
	trips := aggregate.TrendSubTripsKms(r.subTrips, r.municipality.Code)
	euro6 := aggregate.TrendEuro6(r.subTrips)
	shipments := aggregate.TrendShipmentsWeight(r.shipments)

	type line struct {
		trips, kms, euro6, count, weight float64
	}
	lines := make(map[int]*line)
	at := func(year int) *line {
		if lines[year] == nil {
			lines[year] = &line{}
		}
		return lines[year]
	}
	for _, p := range trips {
		at(p.Year).trips, at(p.Year).kms = p.Value, p.Value2
	}
	for _, p := range euro6 {
		at(p.Year).euro6 = p.Value
	}
	for _, p := range shipments {
		at(p.Year).count, at(p.Year).weight = p.Value, p.Value2
	}

	w.row(w.styles.header, "Jaar", "Deelritten", "Km binnen gemeente", "Aandeel Euro 6", "Zendingen", "Bruto gewicht (kg)")
	for _, y := range r.years {
		l, ok := lines[y]
		if !ok {
			continue
		}
		w.row(0, y, l.trips, l.kms, l.euro6, l.count, l.weight)
		w.style("D", w.styles.percent)
	}
	w.width("B", 16)
	w.width("C", 20)
}

func (r *report) loadFactor(w *sheetWriter) {
	years := aggregate.SortedYears(r.subTrips)

	header := []interface{}{"Klasse"}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	w.row(w.styles.header, header...)

	for _, c := range aggregate.LoadFactorPerClass(r.subTrips) {
		values := []interface{}{c.Class}
		for _, y := range years {
			values = append(values, c.Values[y])
		}
		w.row(0, values...)
	}
	w.width("A", 36)
}

func (r *report) classes(w *sheetWriter) {
	sections := []struct {
		title   string
		classes []aggregate.ClassCount
	}{
		{"Zendingen per klasse", aggregate.ShipmentsPerClass(r.shipments[r.year])},
		{"Deelritten per klasse", aggregate.SubTripsPerClass(r.subTrips[r.year])},
	}
	for _, s := range sections {
		w.row(w.styles.header, s.title, "Aantal", "Bruto gewicht (kg)")
		for _, c := range s.classes {
			w.row(0, c.Class, c.Count, c.Weight)
		}
		w.skip()
	}

	years := aggregate.SortedYears(r.subTrips)
	header := []interface{}{"Nationale deelritten per klasse"}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	w.row(w.styles.header, header...)
	for _, c := range aggregate.SubTripsPerClassPerYear(r.subTrips) {
		values := []interface{}{c.Class}
		for _, y := range years {
			values = append(values, c.Values[y])
		}
		w.row(0, values...)
	}
	w.width("A", 36)
	w.width("C", 20)
}

func (r *report) distributions(w *sheetWriter) {
	shipments := r.shipments[r.year]
	subTrips := r.subTrips[r.year]

	sections := []struct {
		title  string
		groups []aggregate.Group
	}{
		{"Brandstof (deelritten)", aggregate.FuelDistribution(subTrips)},
		{"Gewichtsklasse (deelritten)", aggregate.WeightClassDistribution(subTrips)},
		{"Voertuigsoort (deelritten)", aggregate.VehicleDistribution(subTrips)},
		{"Emissiezone laden (zendingen)", aggregate.EmissionZoneDistribution(shipments, true, aggregate.ShipmentCount)},
		{"Emissiezone lossen (zendingen)", aggregate.EmissionZoneDistribution(shipments, false, aggregate.ShipmentCount)},
	}

	for i, s := range sections {
		if i > 0 {
			w.skip()
		}
		w.row(w.styles.header, s.title, "Waarde")
		for _, g := range s.groups {
			w.row(0, g.Name, g.Value)
		}
	}
	w.width("A", 36)
}

func (r *report) vehicles(w *sheetWriter) {
	perYear := aggregate.VehicleTypeSharePerYear(r.subTrips)

	// Vehicle types in order of first appearance.
	var names []string
	shares := make(map[string]map[int]float64)
	header := []interface{}{"Voertuigsoort"}
	for _, ys := range perYear {
		header = append(header, strconv.Itoa(ys.Year))
		for _, g := range ys.Shares {
			if shares[g.Name] == nil {
				shares[g.Name] = make(map[int]float64)
				names = append(names, g.Name)
			}
			shares[g.Name][ys.Year] = g.Value
		}
	}

	w.row(w.styles.header, header...)
	for _, name := range names {
		values := []interface{}{name}
		for _, ys := range perYear {
			values = append(values, shares[name][ys.Year])
		}
		w.row(0, values...)
		for i := range perYear {
			col, err := excelize.ColumnNumberToName(i + 2)
			if err != nil {
				w.err = err
				return
			}
			w.style(col, w.styles.percent)
		}
	}
	w.width("A", 36)
}

// regions needs a detected municipality for the inbound and outbound
// sections. The region pairs cover every shipment of the report year.
func (r *report) regions(w *sheetWriter) {
	shipments := r.shipments[r.year]

	var inbound, outbound []aggregate.Share
	if r.hasMunicipal {
		inbound = aggregate.RegionShareInbound(shipments, r.municipality.Code, aggregate.ShipmentCount)
		outbound = aggregate.RegionShareOutbound(shipments, r.municipality.Code, aggregate.ShipmentCount)
	}

	sections := []struct {
		title  string
		shares []aggregate.Share
	}{
		{"Herkomstregio inkomend", inbound},
		{"Bestemmingsregio uitgaand", outbound},
	}
	for _, s := range sections {
		w.row(w.styles.header, s.title, "Zendingen", "Aandeel")
		for _, sh := range s.shares {
			w.row(0, sh.Key, sh.Value, sh.Percentage)
			w.style("C", w.styles.percent)
		}
		w.skip()
	}

	originRegion := func(rec types.ShipmentRecord) string { return rec.Origin.Region }
	destRegion := func(rec types.ShipmentRecord) string { return rec.Destination.Region }

	w.row(w.styles.header, "Herkomstregio", "Bestemmingsregio", "Zendingen")
	for _, p := range aggregate.TopNPairs(shipments, originRegion, destRegion, aggregate.ShipmentCount, topPairs) {
		w.row(0, p.Origin, p.Destination, p.Value)
	}
	w.width("A", 28)
	w.width("B", 28)
}

func (r *report) postalAreas(w *sheetWriter) {
	subTrips := r.subTrips[r.year]

	sections := []struct {
		title string
		areas []aggregate.PostalArea
	}{
		{"PC4 herkomst", aggregate.SubTripsPerPC4(subTrips, true)},
		{"PC4 bestemming", aggregate.SubTripsPerPC4(subTrips, false)},
		{"PC6 herkomst (top 25)", limitAreas(aggregate.SubTripsPerPC6(subTrips, true), topPC6)},
		{"PC6 bestemming (top 25)", limitAreas(aggregate.SubTripsPerPC6(subTrips, false), topPC6)},
	}
	for i, s := range sections {
		if i > 0 {
			w.skip()
		}
		w.row(w.styles.header, s.title, "Deelritten", "Bruto gewicht (kg)", "Beladingsgraad")
		for _, a := range s.areas {
			w.row(0, a.Code, a.Count, a.Weight, a.LoadFactor)
			w.style("D", w.styles.percent)
		}
	}
	w.width("A", 24)
	w.width("C", 20)
	w.width("D", 16)
}

func (r *report) countries(w *sheetWriter) {
	w.row(w.styles.header, "Land", "Code", "Geladen", "Gelost")
	for _, c := range aggregate.InternationalPerCountry(r.shipments[r.year], r.opts.Domestic, aggregate.ShipmentCount) {
		w.row(0, c.Country, c.CountryCode, c.Loaded, c.Unloaded)
	}
	w.width("A", 24)
}

func (r *report) files(w *sheetWriter) {
	w.row(w.styles.header, "Bestand", "Rol", "Status", "Jaar", "Melding")
	for _, d := range r.in.Session.Files() {
		var year interface{}
		if d.Year > 0 {
			year = d.Year
		}
		w.row(0, d.Name, string(d.Role), string(d.Status), year, d.Message)
	}
	w.width("A", 40)
	w.width("B", 28)
	w.width("E", 60)
}

func (r *report) completeness(w *sheetWriter) {
	w.row(w.styles.header, "Bestand", "Veld", "Volledigheid")
	for _, res := range r.in.Results {
		for _, c := range res.Completeness {
			w.row(0, res.File, c.Field, c.Completeness)
			w.style("C", w.styles.percent)
		}
	}
	w.width("A", 40)
	w.width("B", 36)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

type styles struct {
	bold    int
	header  int
	percent int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	return s, nil
}

// sheetWriter appends rows to one sheet. The first error stops all later
// writes and is kept in err.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles styles
	next   int
	err    error
}

func (w *sheetWriter) row(style int, values ...interface{}) {
	if w.err != nil {
		return
	}
	w.next++
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if w.err = w.f.SetSheetRow(w.sheet, cell, &values); w.err != nil {
		return
	}
	if style != 0 {
		w.err = w.f.SetRowStyle(w.sheet, w.next, w.next, style)
	}
}

func (w *sheetWriter) percentRow(label string, value float64) {
	w.row(0, label, value)
	w.style("B", w.styles.percent)
}

// style formats one cell of the last written row.
func (w *sheetWriter) style(col string, style int) {
	if w.err != nil {
		return
	}
	cell := col + strconv.Itoa(w.next)
	w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
}

func (w *sheetWriter) skip() {
	w.next++
}

func (w *sheetWriter) width(col string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(w.sheet, col, col, width)
}

func limitAreas(areas []aggregate.PostalArea, n int) []aggregate.PostalArea {
	if len(areas) > n {
		return areas[:n]
	}
	return areas
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}

func describeFilters(f filter.Filters) string {
	if f.IsZero() {
		return "geen"
	}

	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+"="+value)
		}
	}
	if f.Year != 0 {
		add("jaar", strconv.Itoa(f.Year))
	}
	add("euronorm", f.EmissionClass)
	add("zone laden", f.ZoneOrigin)
	add("zone lossen", f.ZoneDestination)
	add("handel", string(f.Trade))
	add("voertuigsoort", f.VehicleType)
	return strings.Join(parts, ", ")
}
