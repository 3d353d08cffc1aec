package archive

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"

	"brainzzz/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[int]SnapshotRecord
	exports     []ExportRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[int]SnapshotRecord)
	s.exports = nil
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, record SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[record.BrainID] = copySnapshotRecord(record)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, brainID int) (SnapshotRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.snapshots[brainID]
	if !ok {
		return SnapshotRecord{}, false, nil
	}
	return copySnapshotRecord(record), true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]SnapshotRecord, 0, len(s.snapshots))
	for _, record := range s.snapshots {
		records = append(records, copySnapshotRecord(record))
	}
	slices.SortFunc(records, func(a, b SnapshotRecord) int { return a.BrainID - b.BrainID })
	return records, nil
}

func (s *MemoryStore) DeleteSnapshot(_ context.Context, brainID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.snapshots[brainID]
	delete(s.snapshots, brainID)
	return ok, nil
}

func (s *MemoryStore) AppendExport(_ context.Context, record ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exports = append(s.exports, record)
	return nil
}

func (s *MemoryStore) ListExports(_ context.Context, limit int) ([]ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := len(s.exports)
	if limit > 0 && limit < count {
		count = limit
	}
	records := make([]ExportRecord, 0, count)
	for i := len(s.exports) - 1; i >= 0 && len(records) < count; i-- {
		records = append(records, s.exports[i])
	}
	return records, nil
}

func (s *MemoryStore) PruneExports(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if keep >= len(s.exports) {
		return 0, nil
	}
	removed := len(s.exports) - keep
	kept := make([]ExportRecord, keep)
	copy(kept, s.exports[removed:])
	s.exports = kept
	return removed, nil
}

func copySnapshotRecord(record SnapshotRecord) SnapshotRecord {
	record.Snapshot.Nodes = append([]model.Node(nil), record.Snapshot.Nodes...)
	record.Snapshot.Connections = append([]model.Connection(nil), record.Snapshot.Connections...)
	return record
}
