/*
Package census provides the district registry, census ledger, and
aggregation engine for demographic census records.

PURPOSE:
  Districts are registered once and never change. Each district receives at
  most one census record per calendar year; writing the same year again
  replaces the whole record. Summaries and regional reports are derived on
  every call from the stored rows, nothing derived is persisted.

KEY CONCEPTS IN THIS FILE (types.go):
  - District: a named administrative unit (unique name)
  - CensusRecord: one district's statistics for one year
  - PopulationSummary: latest-year view with density and YoY growth
  - RegionalReport: latest-year totals across a region
  - Status / Export: store-wide reporting shapes

JSON:
  Field names follow the persisted column names (area_sqkm, district_type,
  collected_at, ...). Presentation layers serialize these types directly.

SEE ALSO:
  - store.go: Storage contract
  - registry.go, ledger.go: Write paths
  - aggregate.go: Derived views
*/
package census

import (
	"encoding/json"
	"time"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultRegion       = "unknown"
	DefaultDistrictType = "urban"

	// YearRangeNone is reported by Status when no census record exists.
	YearRangeNone = "none"
)

// =============================================================================
// ENTITIES
// =============================================================================

type DistrictID int64
type RecordID int64

// District is a named administrative unit under census tracking.
type District struct {
	ID           DistrictID `json:"id"`
	Name         string     `json:"name"`
	Region       string     `json:"region"`
	AreaSqKm     float64    `json:"area_sqkm"`
	DistrictType string     `json:"district_type"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CensusRecord is one district's measured statistics for one calendar year.
type CensusRecord struct {
	ID               RecordID   `json:"id"`
	DistrictID       DistrictID `json:"district_id"`
	Year             int        `json:"year"`
	Population       int64      `json:"population"`
	Households       int64      `json:"households"`
	AvgAge           float64    `json:"avg_age"`
	MedianIncome     float64    `json:"median_income"`
	UnemploymentRate float64    `json:"unemployment_rate"`
	CollectedAt      time.Time  `json:"collected_at"`
	Notes            string     `json:"notes"`
}

// =============================================================================
// INPUTS
// =============================================================================

// DistrictInput describes a district to register.
// Empty Region and DistrictType take DefaultRegion and DefaultDistrictType.
type DistrictInput struct {
	Name         string  `json:"name"`
	Region       string  `json:"region,omitempty"`
	AreaSqKm     float64 `json:"area_sqkm,omitempty"`
	DistrictType string  `json:"district_type,omitempty"`
}

func (in DistrictInput) withDefaults() DistrictInput {
	if in.Region == "" {
		in.Region = DefaultRegion
	}
	if in.DistrictType == "" {
		in.DistrictType = DefaultDistrictType
	}
	return in
}

// CensusInput describes one census write. Every field of the stored record
// is taken from the input; there is no partial update.
type CensusInput struct {
	DistrictName     string  `json:"district_name"`
	Year             int     `json:"year"`
	Population       int64   `json:"population"`
	Households       int64   `json:"households,omitempty"`
	AvgAge           float64 `json:"avg_age,omitempty"`
	MedianIncome     float64 `json:"median_income,omitempty"`
	UnemploymentRate float64 `json:"unemployment_rate,omitempty"`
	Notes            string  `json:"notes,omitempty"`
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// PopulationSummary joins a district with its most recent census record.
//
// YoYGrowth is 0 when there is no comparable prior year (a single record, or
// a prior population of 0). Callers must not read that as "no change".
type PopulationSummary struct {
	DistrictName     string  `json:"district_name"`
	Region           string  `json:"region"`
	LatestYear       int     `json:"latest_year"`
	Population       int64   `json:"population"`
	Households       int64   `json:"households"`
	DensityPerSqKm   float64 `json:"density_per_sqkm"`
	AvgAge           float64 `json:"avg_age"`
	MedianIncome     float64 `json:"median_income"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	YoYGrowth        float64 `json:"yoy_growth"`
}

// RegionalReport aggregates the latest-year figures of a region.
//
// The result has two shapes. When the region has no registered districts at
// all, Totals is nil and the JSON form is {"region": ..., "districts": 0}.
// Otherwise Totals is set (possibly with DistrictsWithData == 0) and the JSON
// form carries the aggregate fields instead. Callers branch on Totals.
type RegionalReport struct {
	Region        string
	DistrictCount int
	Totals        *RegionalTotals
}

// RegionalTotals are the aggregate fields of a RegionalReport.
type RegionalTotals struct {
	DistrictsWithData int     `json:"districts_with_data"`
	TotalPopulation   int64   `json:"total_population"`
	TotalHouseholds   int64   `json:"total_households"`
	AvgHouseholdSize  float64 `json:"avg_household_size"`
}

// HasTotals reports whether the aggregate fields are present.
func (r RegionalReport) HasTotals() bool { return r.Totals != nil }

func (r RegionalReport) MarshalJSON() ([]byte, error) {
	if r.Totals == nil {
		return json.Marshal(struct {
			Region    string `json:"region"`
			Districts int    `json:"districts"`
		}{r.Region, r.DistrictCount})
	}
	return json.Marshal(struct {
		Region string `json:"region"`
		RegionalTotals
	}{r.Region, *r.Totals})
}

// Status is a store-wide overview.
type Status struct {
	Districts     int    `json:"districts"`
	CensusRecords int    `json:"census_records"`
	YearRange     string `json:"year_range"`
	DBPath        string `json:"db_path"`

	MinYear *int `json:"-"`
	MaxYear *int `json:"-"`
}

// Export is a full dump of the store.
type Export struct {
	ExportID      string         `json:"export_id"`
	Districts     []District     `json:"districts"`
	CensusRecords []CensusRecord `json:"census_records"`
	ExportedAt    time.Time      `json:"exported_at"`
}
