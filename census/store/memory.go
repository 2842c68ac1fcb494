// Package store provides census.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/census-tracker/census"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps districts and records in maps. It enforces the same unique
// and referential constraints as the SQLite store.
type Memory struct {
	mu        sync.RWMutex
	districts map[census.DistrictID]census.District
	byName    map[string]census.DistrictID
	records   map[recordKey]census.CensusRecord
	nextDist  census.DistrictID
	nextRec   census.RecordID
}

type recordKey struct {
	DistrictID census.DistrictID
	Year       int
}

func NewMemory() *Memory {
	return &Memory{
		districts: make(map[census.DistrictID]census.District),
		byName:    make(map[string]census.DistrictID),
		records:   make(map[recordKey]census.CensusRecord),
	}
}

func (m *Memory) Location() string { return ":memory:" }

func (m *Memory) InsertDistrict(_ context.Context, d census.District) (census.District, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertDistrictLocked(d)
}

func (m *Memory) insertDistrictLocked(d census.District) (census.District, error) {
	if _, exists := m.byName[d.Name]; exists {
		return census.District{}, census.ErrConstraintViolation
	}
	m.nextDist++
	d.ID = m.nextDist
	m.districts[d.ID] = d
	m.byName[d.Name] = d.ID
	return d, nil
}

func (m *Memory) DistrictByName(_ context.Context, name string) (*census.District, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.districtByNameLocked(name), nil
}

func (m *Memory) districtByNameLocked(name string) *census.District {
	id, ok := m.byName[name]
	if !ok {
		return nil
	}
	d := m.districts[id]
	return &d
}

func (m *Memory) ListDistricts(_ context.Context, region string) ([]census.District, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listDistrictsLocked(region), nil
}

func (m *Memory) listDistrictsLocked(region string) []census.District {
	result := []census.District{}
	for _, d := range m.districts {
		if region == "" || d.Region == region {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) UpsertCensus(_ context.Context, r census.CensusRecord) (census.CensusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCensusLocked(r)
}

func (m *Memory) upsertCensusLocked(r census.CensusRecord) (census.CensusRecord, error) {
	if _, ok := m.districts[r.DistrictID]; !ok {
		return census.CensusRecord{}, census.ErrReferentialViolation
	}
	k := recordKey{DistrictID: r.DistrictID, Year: r.Year}
	if existing, ok := m.records[k]; ok {
		r.ID = existing.ID
	} else {
		m.nextRec++
		r.ID = m.nextRec
	}
	m.records[k] = r
	return r, nil
}

func (m *Memory) LatestRecords(_ context.Context, districtID census.DistrictID, limit int) ([]census.CensusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestRecordsLocked(districtID, limit), nil
}

func (m *Memory) latestRecordsLocked(districtID census.DistrictID, limit int) []census.CensusRecord {
	var result []census.CensusRecord
	for k, r := range m.records {
		if k.DistrictID == districtID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year > result[j].Year })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (m *Memory) AllRecords(_ context.Context) ([]census.CensusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allRecordsLocked(), nil
}

func (m *Memory) allRecordsLocked() []census.CensusRecord {
	result := make([]census.CensusRecord, 0, len(m.records))
	for _, r := range m.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) Stats(_ context.Context) (census.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked(), nil
}

func (m *Memory) statsLocked() census.StoreStats {
	st := census.StoreStats{Districts: len(m.districts), Records: len(m.records)}
	for k := range m.records {
		year := k.Year
		if st.MinYear == nil || year < *st.MinYear {
			y := year
			st.MinYear = &y
		}
		if st.MaxYear == nil || year > *st.MaxYear {
			y := year
			st.MaxYear = &y
		}
	}
	return st
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(census.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	districts map[census.DistrictID]census.District
	byName    map[string]census.DistrictID
	records   map[recordKey]census.CensusRecord
	nextDist  census.DistrictID
	nextRec   census.RecordID
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		districts: make(map[census.DistrictID]census.District, len(m.districts)),
		byName:    make(map[string]census.DistrictID, len(m.byName)),
		records:   make(map[recordKey]census.CensusRecord, len(m.records)),
		nextDist:  m.nextDist,
		nextRec:   m.nextRec,
	}
	for k, v := range m.districts {
		s.districts[k] = v
	}
	for k, v := range m.byName {
		s.byName[k] = v
	}
	for k, v := range m.records {
		s.records[k] = v
	}
	return s
}

// restore keeps the id counters: identifiers handed out inside a rolled
// back transaction are not reused.
func (m *Memory) restore(s memorySnapshot) {
	m.districts = s.districts
	m.byName = s.byName
	m.records = s.records
}

// txMemoryView runs Store calls against a Memory whose lock is already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Location() string { return tv.parent.Location() }

func (tv *txMemoryView) InsertDistrict(_ context.Context, d census.District) (census.District, error) {
	return tv.parent.insertDistrictLocked(d)
}

func (tv *txMemoryView) DistrictByName(_ context.Context, name string) (*census.District, error) {
	return tv.parent.districtByNameLocked(name), nil
}

func (tv *txMemoryView) ListDistricts(_ context.Context, region string) ([]census.District, error) {
	return tv.parent.listDistrictsLocked(region), nil
}

func (tv *txMemoryView) UpsertCensus(_ context.Context, r census.CensusRecord) (census.CensusRecord, error) {
	return tv.parent.upsertCensusLocked(r)
}

func (tv *txMemoryView) LatestRecords(_ context.Context, districtID census.DistrictID, limit int) ([]census.CensusRecord, error) {
	return tv.parent.latestRecordsLocked(districtID, limit), nil
}

func (tv *txMemoryView) AllRecords(_ context.Context) ([]census.CensusRecord, error) {
	return tv.parent.allRecordsLocked(), nil
}

func (tv *txMemoryView) Stats(_ context.Context) (census.StoreStats, error) {
	return tv.parent.statsLocked(), nil
}

var (
	_ census.TxStore = (*Memory)(nil)
	_ census.Store   = (*txMemoryView)(nil)
)
