/*
Package sqlite provides the SQLite-backed census.Store.

PURPOSE:
  Durable, constraint-enforcing persistence for districts and census
  records. The schema is created on New() with IF NOT EXISTS, so opening an
  existing file is a no-op beyond connecting.

KEY TABLES:
  districts:       One row per district, name UNIQUE
  census_records:  One row per (district_id, year), FK to districts

INDEXES:
  - idx_census_district: (district_id, year), serves LatestRecords

WRITE SEMANTICS:
  - InsertDistrict: plain INSERT; UNIQUE(name) -> census.ErrConstraintViolation
  - UpsertCensus: INSERT ... ON CONFLICT(district_id, year) DO UPDATE of every
    column. The row keeps its id; AUTOINCREMENT ids are never reused.
    FK failure -> census.ErrReferentialViolation

CONCURRENCY:
  One connection (SetMaxOpenConns(1)) guarded by sync.RWMutex. The tool has
  a single writer; nothing stronger is provided.

WAL MODE:
  File databases are opened with WAL journaling and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/census.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tracker := census.NewTracker(store)

SEE ALSO:
  - census/store.go: Interface definitions
  - census/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/census-tracker/census"
)

// MemoryLocation opens a private in-memory database.
const MemoryLocation = ":memory:"

// Store implements census.TxStore using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	location string
}

// New opens (creating if needed) the database at location and ensures the
// schema exists. Use MemoryLocation for an in-memory database.
func New(location string) (*Store, error) {
	if location == "" {
		return nil, errors.New("database location is required")
	}
	if location != MemoryLocation && !strings.HasPrefix(location, "file:") {
		if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(location))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each ":memory:" connection is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, location: location}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// connParams are appended to every location, after any query it already has.
const connParams = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

func dsn(location string) string {
	if strings.Contains(location, "?") {
		return location + "&" + connParams
	}
	return location + "?" + connParams
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the location the store was opened with.
func (s *Store) Location() string {
	return s.location
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS districts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		region TEXT DEFAULT 'unknown',
		area_sqkm REAL DEFAULT 0,
		district_type TEXT DEFAULT 'urban',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS census_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		district_id INTEGER NOT NULL REFERENCES districts(id),
		year INTEGER NOT NULL,
		population INTEGER DEFAULT 0,
		households INTEGER DEFAULT 0,
		avg_age REAL DEFAULT 0,
		median_income REAL DEFAULT 0,
		unemployment_rate REAL DEFAULT 0,
		collected_at TEXT NOT NULL,
		notes TEXT DEFAULT '',
		UNIQUE(district_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_census_district
		ON census_records(district_id, year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// DISTRICTS
// =============================================================================

// districtColumns and scanDistrict must list the same columns in the same order.
const districtColumns = `id, name, region, area_sqkm, district_type, created_at`

func scanDistrict(row rowScanner) (census.District, error) {
	var (
		d         census.District
		region    sql.NullString
		area      sql.NullFloat64
		dType     sql.NullString
		createdAt string
	)
	err := row.Scan(&d.ID, &d.Name, &region, &area, &dType, &createdAt)
	if err != nil {
		return census.District{}, err
	}
	d.Region = region.String
	d.AreaSqKm = area.Float64
	d.DistrictType = dType.String
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return census.District{}, fmt.Errorf("district %d created_at: %w", d.ID, err)
	}
	return d, nil
}

// InsertDistrict adds a district.
func (s *Store) InsertDistrict(ctx context.Context, d census.District) (census.District, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertDistrict(ctx, s.db, d)
}

func insertDistrict(ctx context.Context, q querier, d census.District) (census.District, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO districts (name, region, area_sqkm, district_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		d.Name, d.Region, d.AreaSqKm, d.DistrictType, formatTime(d.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return census.District{}, fmt.Errorf("%w: district name %q", census.ErrConstraintViolation, d.Name)
		}
		return census.District{}, fmt.Errorf("failed to insert district: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return census.District{}, fmt.Errorf("failed to read district id: %w", err)
	}
	d.ID = census.DistrictID(id)
	return d, nil
}

// DistrictByName returns the district with the exact name, or nil.
func (s *Store) DistrictByName(ctx context.Context, name string) (*census.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return districtByName(ctx, s.db, name)
}

func districtByName(ctx context.Context, q querier, name string) (*census.District, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+districtColumns+" FROM districts WHERE name = ?", name)
	d, err := scanDistrict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get district: %w", err)
	}
	return &d, nil
}

// ListDistricts returns districts ordered by id, optionally filtered by region.
func (s *Store) ListDistricts(ctx context.Context, region string) ([]census.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDistricts(ctx, s.db, region)
}

func listDistricts(ctx context.Context, q querier, region string) ([]census.District, error) {
	query := "SELECT " + districtColumns + " FROM districts"
	var args []any
	if region != "" {
		query += " WHERE region = ?"
		args = append(args, region)
	}
	query += " ORDER BY id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	defer rows.Close()

	districts := []census.District{}
	for rows.Next() {
		d, err := scanDistrict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan district: %w", err)
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

// =============================================================================
// CENSUS RECORDS
// =============================================================================

// recordColumns and scanRecord must list the same columns in the same order.
const recordColumns = `id, district_id, year, population, households, avg_age,
	median_income, unemployment_rate, collected_at, notes`

func scanRecord(row rowScanner) (census.CensusRecord, error) {
	var (
		r           census.CensusRecord
		population  sql.NullInt64
		households  sql.NullInt64
		avgAge      sql.NullFloat64
		income      sql.NullFloat64
		unemp       sql.NullFloat64
		collectedAt string
		notes       sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.DistrictID, &r.Year, &population, &households, &avgAge,
		&income, &unemp, &collectedAt, &notes,
	)
	if err != nil {
		return census.CensusRecord{}, err
	}
	r.Population = population.Int64
	r.Households = households.Int64
	r.AvgAge = avgAge.Float64
	r.MedianIncome = income.Float64
	r.UnemploymentRate = unemp.Float64
	if r.CollectedAt, err = parseTime(collectedAt); err != nil {
		return census.CensusRecord{}, fmt.Errorf("census record %d collected_at: %w", r.ID, err)
	}
	r.Notes = notes.String
	return r, nil
}

// UpsertCensus inserts the record or replaces every column of the existing
// record for (district_id, year).
func (s *Store) UpsertCensus(ctx context.Context, r census.CensusRecord) (census.CensusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertCensus(ctx, s.db, r)
}

func upsertCensus(ctx context.Context, q querier, r census.CensusRecord) (census.CensusRecord, error) {
	query := `
		INSERT INTO census_records
		(district_id, year, population, households, avg_age,
		 median_income, unemployment_rate, collected_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, year) DO UPDATE SET
			population = excluded.population,
			households = excluded.households,
			avg_age = excluded.avg_age,
			median_income = excluded.median_income,
			unemployment_rate = excluded.unemployment_rate,
			collected_at = excluded.collected_at,
			notes = excluded.notes
		RETURNING id
	`

	var id int64
	err := q.QueryRowContext(ctx, query,
		r.DistrictID, r.Year, r.Population, r.Households, r.AvgAge,
		r.MedianIncome, r.UnemploymentRate, formatTime(r.CollectedAt), r.Notes,
	).Scan(&id)
	if err != nil {
		if isForeignKeyError(err) {
			return census.CensusRecord{}, fmt.Errorf("%w: district id %d", census.ErrReferentialViolation, r.DistrictID)
		}
		return census.CensusRecord{}, fmt.Errorf("failed to upsert census record: %w", err)
	}
	r.ID = census.RecordID(id)
	return r, nil
}

// LatestRecords returns up to limit records for a district, newest year first.
func (s *Store) LatestRecords(ctx context.Context, districtID census.DistrictID, limit int) ([]census.CensusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestRecords(ctx, s.db, districtID, limit)
}

func latestRecords(ctx context.Context, q querier, districtID census.DistrictID, limit int) ([]census.CensusRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return queryRecords(ctx, q,
		"SELECT "+recordColumns+" FROM census_records WHERE district_id = ? ORDER BY year DESC LIMIT ?",
		districtID, limit)
}

// AllRecords returns every census record ordered by id.
func (s *Store) AllRecords(ctx context.Context) ([]census.CensusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryRecords(ctx, s.db, "SELECT "+recordColumns+" FROM census_records ORDER BY id")
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]census.CensusRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query census records: %w", err)
	}
	defer rows.Close()

	records := []census.CensusRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan census record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// STATS
// =============================================================================

// Stats returns counts and the year range in one read.
func (s *Store) Stats(ctx context.Context) (census.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats(ctx, s.db)
}

func stats(ctx context.Context, q querier) (census.StoreStats, error) {
	var (
		st               census.StoreStats
		minYear, maxYear sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM districts),
			(SELECT COUNT(*) FROM census_records),
			(SELECT MIN(year) FROM census_records),
			(SELECT MAX(year) FROM census_records)
	`).Scan(&st.Districts, &st.Records, &minYear, &maxYear)
	if err != nil {
		return census.StoreStats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	if minYear.Valid && maxYear.Valid {
		lo, hi := int(minYear.Int64), int(maxYear.Int64)
		st.MinYear, st.MaxYear = &lo, &hi
	}
	return st, nil
}

// =============================================================================
// TRANSACTIONAL STORE (census.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store census.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, location: s.location}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open transaction. It must not touch the
// parent's *sql.DB: the single connection is held by tx.
type txStore struct {
	tx       *sql.Tx
	location string
}

func (ts *txStore) Location() string { return ts.location }

func (ts *txStore) InsertDistrict(ctx context.Context, d census.District) (census.District, error) {
	return insertDistrict(ctx, ts.tx, d)
}

func (ts *txStore) DistrictByName(ctx context.Context, name string) (*census.District, error) {
	return districtByName(ctx, ts.tx, name)
}

func (ts *txStore) ListDistricts(ctx context.Context, region string) ([]census.District, error) {
	return listDistricts(ctx, ts.tx, region)
}

func (ts *txStore) UpsertCensus(ctx context.Context, r census.CensusRecord) (census.CensusRecord, error) {
	return upsertCensus(ctx, ts.tx, r)
}

func (ts *txStore) LatestRecords(ctx context.Context, districtID census.DistrictID, limit int) ([]census.CensusRecord, error) {
	return latestRecords(ctx, ts.tx, districtID, limit)
}

func (ts *txStore) AllRecords(ctx context.Context) ([]census.CensusRecord, error) {
	return queryRecords(ctx, ts.tx, "SELECT "+recordColumns+" FROM census_records ORDER BY id")
}

func (ts *txStore) Stats(ctx context.Context) (census.StoreStats, error) {
	return stats(ctx, ts.tx)
}

var (
	_ census.TxStore = (*Store)(nil)
	_ census.Store   = (*txStore)(nil)
)

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
