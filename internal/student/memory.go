package student

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps the roster in process
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	students map[int64]*Student
}

// NewMemoryStore creates an empty roster
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{students: make(map[int64]*Student)}
}

// Create stores a new student
func (m *MemoryStore) Create(ctx context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.students {
		if existing.SchoolID == s.SchoolID && existing.AdmissionNo == s.AdmissionNo {
			return ErrAdmissionNoInUse
		}
	}

	m.nextID++
	s.ID = m.nextID
	s.Active = true
	s.CreatedAt = time.Now().UTC()
	stored := *s
	m.students[s.ID] = &stored
	return nil
}

// GetByID retrieves a student by ID
func (m *MemoryStore) GetByID(ctx context.Context, schoolID, id int64) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// List retrieves students ordered by name, then ID
func (m *MemoryStore) List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*Student, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*Student
	for _, s := range m.students {
		if s.SchoolID != schoolID {
			continue
		}
		if filter.Class != "" && !s.InScope(filter.Class, filter.Section) {
			continue
		}
		if filter.Class == "" && filter.Section != "" && filter.Section != AllSections && s.Section != filter.Section {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.FullName), search) {
			continue
		}
		if filter.ActiveOnly && !s.Active {
			continue
		}
		c := *s
		matched = append(matched, &c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].FullName != matched[j].FullName {
			return matched[i].FullName < matched[j].FullName
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if offset >= len(matched) {
		return []*Student{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Update modifies an existing student
func (m *MemoryStore) Update(ctx context.Context, schoolID, id int64, req *UpdateStudentRequest) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, nil
	}
	if req.FullName != nil {
		s.FullName = *req.FullName
	}
	if req.Class != nil {
		s.Class = *req.Class
	}
	if req.Section != nil {
		s.Section = *req.Section
	}
	if req.Active != nil {
		s.Active = *req.Active
	}
	c := *s
	return &c, nil
}
