/*
ledger.go - Census year records per district

PURPOSE:
  The ledger writes one record per (district, year). Writing a year that
  already has a record replaces it entirely: every field, notes included,
  takes the new values and collected_at is refreshed. There is no
  partial-update path and no delete.

WRITE FLOW (one transaction):
  1. Validate input
  2. Resolve district name -> id (ErrDistrictNotFound, nothing written)
  3. Upsert on (district_id, year)

SEE ALSO:
  - store.go: UpsertCensus contract
  - aggregate.go: Reads the latest records back
*/
package census

import (
	"context"
	"errors"
	"math"
)

// Ledger records census data for registered districts.
type Ledger struct {
	store Store
	opts  options
}

func NewLedger(store Store, opts ...Option) *Ledger {
	return &Ledger{store: store, opts: newOptions(opts)}
}

// RecordCensus creates or replaces the record for (district, year).
func (l *Ledger) RecordCensus(ctx context.Context, in CensusInput) (CensusRecord, error) {
	rec, err := l.recordCensus(ctx, in)
	if err != nil {
		l.opts.metrics.ObserveError("record_census", Kind(err))
		return CensusRecord{}, err
	}
	l.opts.metrics.IncrementCensusWrite()
	l.opts.logger.Info("census recorded",
		"record_id", rec.ID, "district", in.DistrictName, "year", rec.Year, "population", rec.Population)
	return rec, nil
}

func (l *Ledger) recordCensus(ctx context.Context, in CensusInput) (CensusRecord, error) {
	if err := validateCensus(in); err != nil {
		return CensusRecord{}, err
	}

	var stored CensusRecord
	err := withTx(ctx, l.store, func(s Store) error {
		d, err := resolveDistrict(ctx, s, in.DistrictName)
		if err != nil {
			return err
		}

		stored, err = s.UpsertCensus(ctx, CensusRecord{
			DistrictID:       d.ID,
			Year:             in.Year,
			Population:       in.Population,
			Households:       in.Households,
			AvgAge:           in.AvgAge,
			MedianIncome:     in.MedianIncome,
			UnemploymentRate: in.UnemploymentRate,
			CollectedAt:      l.opts.now(),
			Notes:            in.Notes,
		})
		// Only reachable if the district vanished between lookup and write.
		if errors.Is(err, ErrReferentialViolation) {
			return &DistrictNotFoundError{Name: in.DistrictName}
		}
		return err
	})
	return stored, err
}

func validateCensus(in CensusInput) error {
	if in.Population < 0 {
		return invalidInput("population must be non-negative, got %d", in.Population)
	}
	if in.Households < 0 {
		return invalidInput("households must be non-negative, got %d", in.Households)
	}
	for name, v := range map[string]float64{
		"avg_age":           in.AvgAge,
		"median_income":     in.MedianIncome,
		"unemployment_rate": in.UnemploymentRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidInput("%s must be a finite number", name)
		}
	}
	return nil
}
