package feestructure

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps fee structures in process
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	structures map[int64]*FeeStructure
	now        func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{structures: make(map[int64]*FeeStructure), now: time.Now}
}

func clone(fs *FeeStructure) *FeeStructure {
	c := *fs
	c.Installments = append([]InstallmentSpec(nil), fs.Installments...)
	return &c
}

// Create stores a structure as the next version of its name and scope
func (m *MemoryStore) Create(ctx context.Context, fs *FeeStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	version := 0
	for _, existing := range m.structures {
		if existing.SchoolID == fs.SchoolID && existing.Name == fs.Name && existing.Class == fs.Class &&
			existing.Section == fs.Section && existing.AcademicYear == fs.AcademicYear && existing.Version > version {
			version = existing.Version
		}
	}

	m.nextID++
	fs.ID = m.nextID
	fs.Version = version + 1
	// Listing order is creation time; IDs break ties between identical timestamps.
	fs.CreatedAt = m.now().UTC()
	m.structures[fs.ID] = clone(fs)
	return nil
}

// GetByID retrieves a structure by ID
func (m *MemoryStore) GetByID(ctx context.Context, schoolID, id int64) (*FeeStructure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fs, ok := m.structures[id]
	if !ok || fs.SchoolID != schoolID {
		return nil, nil
	}
	return clone(fs), nil
}

// List retrieves structures newest first
func (m *MemoryStore) List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*FeeStructure, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*FeeStructure
	for _, fs := range m.structures {
		if fs.SchoolID != schoolID {
			continue
		}
		if filter.Class != "" && fs.Class != filter.Class {
			continue
		}
		if filter.Section != "" && fs.Section != filter.Section && fs.Section != "ALL" {
			continue
		}
		if filter.AcademicYear != "" && fs.AcademicYear != filter.AcademicYear {
			continue
		}
		matched = append(matched, clone(fs))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if offset >= len(matched) {
		return []*FeeStructure{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}
