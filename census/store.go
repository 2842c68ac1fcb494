/*
store.go - Persistence contract for districts and census records

PURPOSE:
  Defines the interface between the census core and the database. The
  Storage Engine enforces the uniqueness and referential constraints; the
  registry and ledger pre-check so those failures do not occur in normal
  operation.

WRITE CONTRACT:
  - InsertDistrict: ErrConstraintViolation when the name exists
  - UpsertCensus: full-row replace on (district_id, year);
    ErrReferentialViolation when the district id does not exist
  - No update or delete of districts. No delete of records.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - census/store/memory.go: In-memory (tests, dev)
*/
package census

import "context"

// Store persists districts and census records.
type Store interface {
	// InsertDistrict persists a new district and returns it with its id.
	InsertDistrict(ctx context.Context, d District) (District, error)

	// DistrictByName returns the district or nil when it does not exist.
	DistrictByName(ctx context.Context, name string) (*District, error)

	// ListDistricts returns all districts, or those whose region equals the
	// filter exactly when region is non-empty. Ordered by id.
	ListDistricts(ctx context.Context, region string) ([]District, error)

	// UpsertCensus inserts or fully replaces the record for
	// (r.DistrictID, r.Year) and returns the stored record.
	UpsertCensus(ctx context.Context, r CensusRecord) (CensusRecord, error)

	// LatestRecords returns up to limit records for a district, year descending.
	LatestRecords(ctx context.Context, districtID DistrictID, limit int) ([]CensusRecord, error)

	// AllRecords returns every census record ordered by id.
	AllRecords(ctx context.Context) ([]CensusRecord, error)

	// Stats returns district and record counts and the year range.
	Stats(ctx context.Context) (StoreStats, error)

	// Location describes where the data lives (file path or ":memory:").
	Location() string
}

// StoreStats are raw counts used by Status.
type StoreStats struct {
	Districts int
	Records   int
	MinYear   *int
	MaxYear   *int
}

// TxStore runs several Store calls in one transaction.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
