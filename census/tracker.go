package census

import "context"

// Tracker bundles the registry, ledger and aggregator over one store.
// It is the surface presentation layers (CLI, HTTP) call into.
type Tracker struct {
	Registry   *Registry
	Ledger     *Ledger
	Aggregator *Aggregator
}

// NewTracker wires the three components to store with shared options.
func NewTracker(store Store, opts ...Option) *Tracker {
	return &Tracker{
		Registry:   NewRegistry(store, opts...),
		Ledger:     NewLedger(store, opts...),
		Aggregator: NewAggregator(store, opts...),
	}
}

func (t *Tracker) AddDistrict(ctx context.Context, in DistrictInput) (District, error) {
	return t.Registry.AddDistrict(ctx, in)
}

func (t *Tracker) ListDistricts(ctx context.Context, region string) ([]District, error) {
	return t.Registry.ListDistricts(ctx, region)
}

func (t *Tracker) RecordCensus(ctx context.Context, in CensusInput) (CensusRecord, error) {
	return t.Ledger.RecordCensus(ctx, in)
}

func (t *Tracker) Summary(ctx context.Context, districtName string) (PopulationSummary, error) {
	return t.Aggregator.Summary(ctx, districtName)
}

func (t *Tracker) RegionalReport(ctx context.Context, region string) (RegionalReport, error) {
	return t.Aggregator.RegionalReport(ctx, region)
}

func (t *Tracker) Status(ctx context.Context) (Status, error) {
	return t.Aggregator.Status(ctx)
}

func (t *Tracker) ExportAll(ctx context.Context) (Export, error) {
	return t.Aggregator.ExportAll(ctx)
}
