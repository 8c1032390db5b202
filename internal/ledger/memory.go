package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	mu  sync.Mutex
	rec *StudentFeeRecord
}

// MemoryStore keeps records in process. Payments on one record are serialized
// by that record's mutex; the map lock is only held for lookups and inserts.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	records  map[int64]*memoryEntry
	bySource map[[2]int64]int64
	receipts map[receiptKey]receiptLocation
	now      func() time.Time
}

type receiptKey struct {
	schoolID int64
	number   string
}

type receiptLocation struct {
	recordID int64
	index    int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[int64]*memoryEntry),
		bySource: make(map[[2]int64]int64),
		receipts: make(map[receiptKey]receiptLocation),
		now:      time.Now,
	}
}

// CreateRecord stores a new record and assigns its ID
func (s *MemoryStore) CreateRecord(ctx context.Context, rec *StudentFeeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{rec.FeeStructureID, rec.StudentID}
	if _, exists := s.bySource[key]; exists {
		return ErrRecordExists
	}

	s.nextID++
	rec.ID = s.nextID
	rec.Version = 1
	rec.CreatedAt = s.now().UTC()

	s.records[rec.ID] = &memoryEntry{rec: rec.Clone()}
	s.bySource[key] = rec.ID
	return nil
}

func (s *MemoryStore) entry(schoolID, id int64) *memoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[id]
	if !ok || e.rec.SchoolID != schoolID {
		return nil
	}
	return e
}

// GetRecord returns a copy of the record
func (s *MemoryStore) GetRecord(ctx context.Context, schoolID, id int64) (*StudentFeeRecord, error) {
	e := s.entry(schoolID, id)
	if e == nil {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// ListRecords returns copies of matching records ordered by student name, then ID
func (s *MemoryStore) ListRecords(ctx context.Context, schoolID int64, filter RecordFilter) ([]*StudentFeeRecord, int, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.records))
	for _, e := range s.records {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []*StudentFeeRecord
	for _, e := range entries {
		e.mu.Lock()
		rec := e.rec
		ok := rec.SchoolID == schoolID &&
			(filter.Class == "" || rec.Class == filter.Class) &&
			(filter.Section == "" || filter.Section == "ALL" || rec.Section == filter.Section) &&
			(filter.StudentID == 0 || rec.StudentID == filter.StudentID) &&
			(filter.FeeStructureID == 0 || rec.FeeStructureID == filter.FeeStructureID) &&
			(search == "" || strings.Contains(strings.ToLower(rec.StudentName), search))
		if ok {
			matched = append(matched, rec.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StudentName != matched[j].StudentName {
			return matched[i].StudentName < matched[j].StudentName
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*StudentFeeRecord{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// AppendPayment applies p under the record's lock if the version still matches
func (s *MemoryStore) AppendPayment(ctx context.Context, schoolID, recordID, expectedVersion int64, p *Payment) error {
	e := s.entry(schoolID, recordID)
	if e == nil {
		return ErrVersionConflict
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Version != expectedVersion {
		return ErrVersionConflict
	}

	s.mu.RLock()
	_, taken := s.receipts[receiptKey{schoolID, p.ReceiptNumber}]
	s.mu.RUnlock()
	if taken {
		return ErrDuplicateReceipt
	}

	stored := *p
	stored.CreatedAt = s.now().UTC()
	if err := e.rec.Apply(stored); err != nil {
		return err
	}
	p.CreatedAt = stored.CreatedAt

	s.mu.Lock()
	s.receipts[receiptKey{schoolID, p.ReceiptNumber}] = receiptLocation{recordID: recordID, index: len(e.rec.Payments) - 1}
	s.mu.Unlock()
	return nil
}

// GetPaymentByReceipt finds a payment by its receipt number
func (s *MemoryStore) GetPaymentByReceipt(ctx context.Context, schoolID int64, receiptNumber string) (*Payment, error) {
	s.mu.RLock()
	loc, ok := s.receipts[receiptKey{schoolID, receiptNumber}]
	var e *memoryEntry
	if ok {
		e = s.records[loc.recordID]
	}
	s.mu.RUnlock()
	if e == nil {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.rec.Payments[loc.index]
	return &p, nil
}
