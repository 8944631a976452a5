package records

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when neither lookup key resolves a record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateCID is returned when a CID is already bound to a
	// different record id.
	ErrDuplicateCID = errors.New("document CID already bound to another record")
	// ErrDuplicateID is returned when a record id is already bound to a
	// different document. Callers re-roll the id rather than evicting.
	ErrDuplicateID = errors.New("record id already bound to another document")
)

// Store indexes medical records under both their record id and their
// document CID. Both keys resolve to the same record.
type Store interface {
	Put(ctx context.Context, record *MedicalRecord) error
	GetByID(ctx context.Context, recordID int64) (*MedicalRecord, error)
	GetByCID(ctx context.Context, documentCID string) (*MedicalRecord, error)
	ListByDID(ctx context.Context, userDID string) ([]*MedicalRecord, error)
	List(ctx context.Context) ([]*MedicalRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// MemoryStore is the process-lifetime record index. All access goes through
// one RWMutex; re-putting the same record id with the same CID overwrites.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[int64]*MedicalRecord
	byCID map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[int64]*MedicalRecord),
		byCID: make(map[string]int64),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, record *MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byCID[record.DocumentCID]; ok && existingID != record.RecordID {
		return ErrDuplicateCID
	}

	if prev, ok := s.byID[record.RecordID]; ok && prev.DocumentCID != record.DocumentCID {
		return ErrDuplicateID
	}

	clone := *record
	s.byID[record.RecordID] = &clone
	s.byCID[record.DocumentCID] = record.RecordID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, recordID int64) (*MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[recordID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStore) GetByCID(_ context.Context, documentCID string) (*MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recordID, ok := s.byCID[documentCID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s.byID[recordID]
	return &clone, nil
}

func (s *MemoryStore) ListByDID(_ context.Context, userDID string) ([]*MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*MedicalRecord
	for _, record := range s.byID {
		if record.UserDID == userDID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*MedicalRecord, 0, len(s.byID))
	for _, record := range s.byID {
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[int64]*MedicalRecord)
	s.byCID = make(map[string]int64)
	return nil
}
