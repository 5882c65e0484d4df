package service

import (
	"context"
	"sync"
	"time"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
)

// memStore is an in-memory Store used by the service tests. Mutations take
// the same all-or-nothing shape the real store gives via transactions.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	plates  map[int64]plate.AuthorizedPlate
	records []plate.PlateRecord
	history []plate.AuthorizationHistory

	failLookup error
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 1,
		plates: make(map[int64]plate.AuthorizedPlate),
	}
}

func (m *memStore) seed(rec plate.AuthorizedPlate) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	m.plates[rec.ID] = rec
	return rec.ID
}

func (m *memStore) FindActivePlate(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	for _, rec := range m.plates {
		if rec.PlateNumber == plateNumber && rec.IsActive {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPlateByNumber(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.plates {
		if rec.PlateNumber == plateNumber {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetPlate(ctx context.Context, id int64) (*plate.AuthorizedPlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := rec
	return &found, nil
}

func (m *memStore) ListPlates(ctx context.Context) ([]plate.AuthorizedPlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]plate.AuthorizedPlate, 0, len(m.plates))
	for _, rec := range m.plates {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) CreatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entry *plate.AuthorizationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	m.plates[rec.ID] = *rec
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) UpdatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entries []plate.AuthorizationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plates[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	m.plates[rec.ID] = *rec
	m.history = append(m.history, entries...)
	return nil
}

func (m *memStore) DeletePlate(ctx context.Context, id int64, entry *plate.AuthorizationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.plates, id)
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) AppendPlateRecord(ctx context.Context, rec *plate.PlateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) UpdateLastAccess(ctx context.Context, plateNumber string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.plates {
		if rec.PlateNumber == plateNumber {
			t := at
			rec.LastAccess = &t
			m.plates[id] = rec
		}
	}
	return nil
}

func (m *memStore) ListPlateRecords(ctx context.Context, limit, offset int) ([]plate.PlateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	out := make([]plate.PlateRecord, end-offset)
	copy(out, m.records[offset:end])
	return out, nil
}

func (m *memStore) ListHistory(ctx context.Context, limit, offset int) ([]plate.AuthorizationHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.history) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.history) {
		end = len(m.history)
	}
	out := make([]plate.AuthorizationHistory, end-offset)
	copy(out, m.history[offset:end])
	return out, nil
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) historyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
