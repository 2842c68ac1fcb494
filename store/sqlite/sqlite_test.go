package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/census-tracker/census"
	"github.com/warp/census-tracker/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	s, err := sqlite.New(sqlite.MemoryLocation)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2024, time.March, 1, 12, 30, 0, 123456789, time.UTC)

func insertDistrict(t *testing.T, s *sqlite.Store, name, region string) census.District {
	t.Helper()
	d, err := s.InsertDistrict(context.Background(), census.District{
		Name: name, Region: region, AreaSqKm: 12.5, DistrictType: "urban", CreatedAt: baseTime,
	})
	require.NoError(t, err)
	return d
}

func record(districtID census.DistrictID, year int, population int64) census.CensusRecord {
	return census.CensusRecord{
		DistrictID:  districtID,
		Year:        year,
		Population:  population,
		Households:  population / 2,
		CollectedAt: baseTime,
	}
}

// =============================================================================
// SCHEMA TESTS
// =============================================================================

func TestNew_EmptyLocation(t *testing.T) {
	_, err := sqlite.New("")
	assert.Error(t, err)
}

func TestNew_ReopenFile_KeepsData(t *testing.T) {
	// GIVEN: A file database with one district
	// WHEN: Closing and reopening it
	// THEN: Schema creation is a no-op and the district is still there
	path := filepath.Join(t.TempDir(), "nested", "census.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	insertDistrict(t, s, "Riverside", "North")
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Location())
	d, err := s.DistrictByName(ctx, "Riverside")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "North", d.Region)
	assert.True(t, baseTime.Equal(d.CreatedAt))
}

func TestNew_FileURIWithQuery_KeepsForeignKeys(t *testing.T) {
	// GIVEN: A file: URI that already carries query parameters
	// THEN: The store opens and foreign keys are still enforced
	location := "file:" + filepath.Join(t.TempDir(), "census.db") + "?mode=rwc"
	s, err := sqlite.New(location)
	require.NoError(t, err)
	defer s.Close()

	insertDistrict(t, s, "Riverside", "North")
	_, err = s.UpsertCensus(context.Background(), record(999, 2020, 1))
	assert.ErrorIs(t, err, census.ErrReferentialViolation)
}

// =============================================================================
// DISTRICT TESTS
// =============================================================================

func TestInsertDistrict_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	d := insertDistrict(t, s, "Riverside", "North")

	assert.NotZero(t, d.ID)
	got, err := s.DistrictByName(context.Background(), "Riverside")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, 12.5, got.AreaSqKm)
	assert.Equal(t, "urban", got.DistrictType)
}

func TestInsertDistrict_DuplicateName_ConstraintViolation(t *testing.T) {
	s := newTestStore(t)
	insertDistrict(t, s, "Riverside", "North")

	_, err := s.InsertDistrict(context.Background(), census.District{Name: "Riverside", CreatedAt: baseTime})
	assert.ErrorIs(t, err, census.ErrConstraintViolation)
}

func TestDistrictByName_Missing_ReturnsNil(t *testing.T) {
	s := newTestStore(t)
	d, err := s.DistrictByName(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestListDistricts_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertDistrict(t, s, "A", "North")
	insertDistrict(t, s, "B", "South")
	insertDistrict(t, s, "C", "North")

	all, err := s.ListDistricts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	north, err := s.ListDistricts(ctx, "North")
	require.NoError(t, err)
	require.Len(t, north, 2)
	assert.Equal(t, "A", north[0].Name)
	assert.Equal(t, "C", north[1].Name)
}

// =============================================================================
// CENSUS RECORD TESTS
// =============================================================================

func TestUpsertCensus_ReplacesAndKeepsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := insertDistrict(t, s, "Riverside", "North")

	first := record(d.ID, 2020, 1000)
	first.Notes = "initial"
	stored, err := s.UpsertCensus(ctx, first)
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	second := record(d.ID, 2020, 1200)
	second.CollectedAt = baseTime.Add(time.Hour)
	replaced, err := s.UpsertCensus(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, replaced.ID)

	all, err := s.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1200), all[0].Population)
	assert.Equal(t, "", all[0].Notes)
	assert.True(t, second.CollectedAt.Equal(all[0].CollectedAt))
}

func TestUpsertCensus_UnknownDistrict_ReferentialViolation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertCensus(context.Background(), record(999, 2020, 1))
	assert.ErrorIs(t, err, census.ErrReferentialViolation)
}

func TestLatestRecords_YearDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := insertDistrict(t, s, "Riverside", "North")
	other := insertDistrict(t, s, "Other", "North")

	for _, year := range []int{2019, 2022, 2020} {
		_, err := s.UpsertCensus(ctx, record(d.ID, year, int64(year)))
		require.NoError(t, err)
	}
	_, err := s.UpsertCensus(ctx, record(other.ID, 2030, 1))
	require.NoError(t, err)

	latest, err := s.LatestRecords(ctx, d.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 2022, latest[0].Year)
	assert.Equal(t, 2020, latest[1].Year)

	unlimited, err := s.LatestRecords(ctx, d.ID, 0)
	require.NoError(t, err)
	assert.Len(t, unlimited, 3)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Districts)
	assert.Equal(t, 0, st.Records)
	assert.Nil(t, st.MinYear)
	assert.Nil(t, st.MaxYear)

	d := insertDistrict(t, s, "Riverside", "North")
	for _, year := range []int{2015, 2021} {
		_, err := s.UpsertCensus(ctx, record(d.ID, year, 1))
		require.NoError(t, err)
	}

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Districts)
	assert.Equal(t, 2, st.Records)
	require.NotNil(t, st.MinYear)
	require.NotNil(t, st.MaxYear)
	assert.Equal(t, 2015, *st.MinYear)
	assert.Equal(t, 2021, *st.MaxYear)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx census.Store) error {
		d, err := tx.InsertDistrict(ctx, census.District{Name: "Temp", CreatedAt: baseTime})
		if err != nil {
			return err
		}
		_, err = tx.UpsertCensus(ctx, record(d.ID+100, 2020, 1))
		return err
	})
	assert.ErrorIs(t, err, census.ErrReferentialViolation)

	d, err := s.DistrictByName(ctx, "Temp")
	require.NoError(t, err)
	assert.Nil(t, d, "insert should have been rolled back")
}

func TestWithTx_Commit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx census.Store) error {
		d, err := tx.InsertDistrict(ctx, census.District{Name: "Kept", CreatedAt: baseTime})
		if err != nil {
			return err
		}
		_, err = tx.UpsertCensus(ctx, record(d.ID, 2020, 5))
		return err
	})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Districts)
	assert.Equal(t, 1, st.Records)
}
