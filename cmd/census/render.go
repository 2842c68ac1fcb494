package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/warp/census-tracker/census"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	colorGreen  = lipgloss.Color("2")
	colorRed    = lipgloss.Color("1")
	colorCyan   = lipgloss.Color("6")
	colorYellow = lipgloss.Color("3")
	colorBlue   = lipgloss.Color("4")
)

type styles struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorBlue),
		Bold:    r.NewStyle().Bold(true),
		Key:     r.NewStyle().Foreground(colorCyan),
		Value:   r.NewStyle().Foreground(colorGreen),
		Accent:  r.NewStyle().Foreground(colorYellow),
		Success: r.NewStyle().Foreground(colorGreen),
		Error:   r.NewStyle().Foreground(colorRed),
	}
}

// renderer writes the text form of core results. Colors are only emitted
// when w is a terminal.
type renderer struct {
	w  io.Writer
	s  styles
	pr *message.Printer
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{
		w:  w,
		s:  newStyles(lipgloss.NewRenderer(w)),
		pr: message.NewPrinter(language.English),
	}
}

func (r *renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// =============================================================================
// DISTRICTS
// =============================================================================

func (r *renderer) district(d census.District) {
	r.printf("  %s %s  region=%s  area=%.1fkm²  type=%s\n",
		r.s.Key.Render(fmt.Sprintf("[%d]", d.ID)),
		r.s.Bold.Render(d.Name),
		r.s.Accent.Render(d.Region),
		d.AreaSqKm,
		d.DistrictType,
	)
}

func (r *renderer) Districts(districts []census.District, region string) {
	label := "all regions"
	if region != "" {
		label = "region=" + region
	}
	r.printf("\n%s\n", r.s.Title.Render(fmt.Sprintf("Districts (%d) — %s", len(districts), label)))
	if len(districts) == 0 {
		r.printf("  %s\n", r.s.Accent.Render("none"))
		return
	}
	for _, d := range districts {
		r.district(d)
	}
}

func (r *renderer) DistrictAdded(d census.District) {
	r.printf("%s District %s registered (id=%d)\n",
		r.s.Success.Render("✓"), r.s.Bold.Render(d.Name), d.ID)
}

func (r *renderer) CensusRecorded(rec census.CensusRecord) {
	r.printf("%s Census recorded (id=%d) %d pop=%s\n",
		r.s.Success.Render("✓"), rec.ID, rec.Year, r.pr.Sprintf("%d", rec.Population))
}

// =============================================================================
// REPORTS
// =============================================================================

func (r *renderer) Summary(s census.PopulationSummary) {
	growthStyle := r.s.Success
	if s.YoYGrowth < 0 {
		growthStyle = r.s.Error
	}

	r.printf("\n%s\n", r.s.Title.Render("Population Summary"))
	r.printf("  %s (%s)  year=%d\n", r.s.Bold.Render(s.DistrictName), s.Region, s.LatestYear)
	r.printf("    population=%s  households=%s\n",
		r.s.Value.Render(r.pr.Sprintf("%d", s.Population)), r.pr.Sprintf("%d", s.Households))
	r.printf("    density=%.1f/km²  avg_age=%.1f\n", s.DensityPerSqKm, s.AvgAge)
	r.printf("    income=$%s  unemployment=%.1f%%  yoy=%s\n",
		r.pr.Sprintf("%.0f", s.MedianIncome),
		s.UnemploymentRate,
		growthStyle.Render(fmt.Sprintf("%+.2f%%", s.YoYGrowth)),
	)
}

func (r *renderer) Region(rep census.RegionalReport) {
	r.printf("\n%s\n", r.s.Title.Render("Regional Report — "+rep.Region))
	r.kv("region", rep.Region)
	if !rep.HasTotals() {
		r.kv("districts", rep.DistrictCount)
		return
	}
	r.kv("districts_with_data", rep.Totals.DistrictsWithData)
	r.kv("total_population", rep.Totals.TotalPopulation)
	r.kv("total_households", rep.Totals.TotalHouseholds)
	r.kv("avg_household_size", rep.Totals.AvgHouseholdSize)
}

func (r *renderer) Status(st census.Status) {
	r.printf("\n%s\n", r.s.Title.Render("Census Tracker Status"))
	r.kvValue("districts", st.Districts)
	r.kvValue("census_records", st.CensusRecords)
	r.kvValue("year_range", st.YearRange)
	r.kvValue("db_path", st.DBPath)
}

func (r *renderer) kv(key string, v any) {
	r.printf("  %s: %v\n", r.s.Key.Render(key), v)
}

func (r *renderer) kvValue(key string, v any) {
	r.printf("  %s: %s\n", r.s.Key.Render(key), r.s.Value.Render(fmt.Sprint(v)))
}

// =============================================================================
// JSON & ERRORS
// =============================================================================

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) renderError(err error) {
	s := newStyles(lipgloss.NewRenderer(a.errOut))
	fmt.Fprintf(a.errOut, "%s %v\n", s.Error.Render("✗"), err)
}
