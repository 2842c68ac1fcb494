/*
aggregate.go - Derived views over the registry and ledger

PURPOSE:
  Computes population summaries, regional reports, status and exports.
  Holds no state: every call re-reads the rows it needs.

SUMMARY:
  Reads the two most recent records of a district (year descending).
    density    = population / area_sqkm, 1 decimal; 0 when area is 0
    yoy_growth = (latest - prior) / prior * 100, 2 decimals;
                 0 when there is no prior record or prior population is 0

REGIONAL REPORT:
  Sums the latest-year population and households of every district in the
  region. Districts without records are left out of the totals; that is the
  only place a per-district ErrNoCensusData is absorbed.
    avg_household_size = total_population / total_households, 2 decimals;
                         0 when total_households is 0
  A region with no registered districts yields a report without totals.
  So does the empty region name, which matches no district.

ROUNDING:
  decimal.Decimal, halves to even (1001 / 4 km² gives 250.2).
*/
package census

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// summaryDepth is how many records a summary needs: latest and prior.
const summaryDepth = 2

// Aggregator computes derived views.
type Aggregator struct {
	store Store
	opts  options
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	return &Aggregator{store: store, opts: newOptions(opts)}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary returns the latest-year view of a district.
func (a *Aggregator) Summary(ctx context.Context, districtName string) (PopulationSummary, error) {
	s, err := a.summary(ctx, districtName)
	if err != nil {
		a.opts.metrics.ObserveError("summary", Kind(err))
		return PopulationSummary{}, err
	}
	a.opts.metrics.IncrementSummary()
	return s, nil
}

func (a *Aggregator) summary(ctx context.Context, districtName string) (PopulationSummary, error) {
	d, err := resolveDistrict(ctx, a.store, districtName)
	if err != nil {
		return PopulationSummary{}, err
	}

	records, err := a.store.LatestRecords(ctx, d.ID, summaryDepth)
	if err != nil {
		return PopulationSummary{}, err
	}
	if len(records) == 0 {
		return PopulationSummary{}, &NoCensusDataError{Name: districtName}
	}

	latest := records[0]
	var prior *CensusRecord
	if len(records) > 1 {
		prior = &records[1]
	}

	return PopulationSummary{
		DistrictName:     d.Name,
		Region:           d.Region,
		LatestYear:       latest.Year,
		Population:       latest.Population,
		Households:       latest.Households,
		DensityPerSqKm:   Density(latest.Population, d.AreaSqKm),
		AvgAge:           latest.AvgAge,
		MedianIncome:     latest.MedianIncome,
		UnemploymentRate: latest.UnemploymentRate,
		YoYGrowth:        growth(latest, prior),
	}, nil
}

// Density returns population per km², rounded to one decimal place.
// A zero (or negative) area yields 0.
func Density(population int64, areaSqKm float64) float64 {
	if areaSqKm <= 0 {
		return 0
	}
	return ratio(decimal.NewFromInt(population), decimal.NewFromFloat(areaSqKm), 1)
}

// GrowthPercent returns the percentage change from prior to latest, rounded
// to two decimal places. A prior population of 0 or less yields 0.
func GrowthPercent(latest, prior int64) float64 {
	if prior <= 0 {
		return 0
	}
	delta := decimal.NewFromInt(latest - prior).Mul(decimal.NewFromInt(100))
	return ratio(delta, decimal.NewFromInt(prior), 2)
}

func growth(latest CensusRecord, prior *CensusRecord) float64 {
	if prior == nil {
		return 0
	}
	return GrowthPercent(latest.Population, prior.Population)
}

func ratio(num, den decimal.Decimal, places int32) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Div(den).RoundBank(places).InexactFloat64()
}

// =============================================================================
// REGIONAL REPORT
// =============================================================================

// RegionalReport aggregates the latest-year figures of every district in region.
func (a *Aggregator) RegionalReport(ctx context.Context, region string) (RegionalReport, error) {
	rep, err := a.regionalReport(ctx, region)
	if err != nil {
		a.opts.metrics.ObserveError("regional_report", Kind(err))
		return RegionalReport{}, err
	}
	a.opts.metrics.IncrementRegionalReport()
	return rep, nil
}

func (a *Aggregator) regionalReport(ctx context.Context, region string) (RegionalReport, error) {
	if region == "" {
		return RegionalReport{Region: region}, nil
	}

	districts, err := a.store.ListDistricts(ctx, region)
	if err != nil {
		return RegionalReport{}, err
	}
	if len(districts) == 0 {
		return RegionalReport{Region: region}, nil
	}

	var totals RegionalTotals
	for _, d := range districts {
		s, err := a.summary(ctx, d.Name)
		if errors.Is(err, ErrNoCensusData) {
			a.opts.logger.Debug("district excluded from regional report",
				"region", region, "district", d.Name)
			continue
		}
		if err != nil {
			return RegionalReport{}, fmt.Errorf("summarize %s: %w", d.Name, err)
		}
		totals.DistrictsWithData++
		totals.TotalPopulation += s.Population
		totals.TotalHouseholds += s.Households
	}
	totals.AvgHouseholdSize = ratio(
		decimal.NewFromInt(totals.TotalPopulation), decimal.NewFromInt(totals.TotalHouseholds), 2)

	return RegionalReport{
		Region:        region,
		DistrictCount: len(districts),
		Totals:        &totals,
	}, nil
}

// =============================================================================
// STATUS & EXPORT
// =============================================================================

// Status returns store-wide counts and the covered year range.
func (a *Aggregator) Status(ctx context.Context) (Status, error) {
	st, err := a.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Districts:     st.Districts,
		CensusRecords: st.Records,
		YearRange:     yearRange(st.MinYear, st.MaxYear),
		DBPath:        a.store.Location(),
		MinYear:       st.MinYear,
		MaxYear:       st.MaxYear,
	}, nil
}

func yearRange(lo, hi *int) string {
	if lo == nil || hi == nil {
		return YearRangeNone
	}
	return fmt.Sprintf("%d–%d", *lo, *hi)
}

// ExportAll returns every district and census record.
func (a *Aggregator) ExportAll(ctx context.Context) (Export, error) {
	districts, err := a.store.ListDistricts(ctx, "")
	if err != nil {
		return Export{}, err
	}
	records, err := a.store.AllRecords(ctx)
	if err != nil {
		return Export{}, err
	}
	if districts == nil {
		districts = []District{}
	}
	if records == nil {
		records = []CensusRecord{}
	}
	return Export{
		ExportID:      uuid.NewString(),
		Districts:     districts,
		CensusRecords: records,
		ExportedAt:    a.opts.now(),
	}, nil
}
