// Package archive persists fetched brain snapshots and a journal of
// completed exports, so the CLI can re-render and list history without
// the simulation running.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"brainzzz/internal/model"
)

// SnapshotRecord is a cached brain snapshot keyed by brain id.
type SnapshotRecord struct {
	model.VersionedRecord
	BrainID   int                 `json:"brain_id"`
	FetchedAt time.Time           `json:"fetched_at"`
	Snapshot  model.BrainSnapshot `json:"snapshot"`
}

// ExportRecord is one journal entry describing a completed export.
type ExportRecord struct {
	model.VersionedRecord
	ID        string    `json:"id"`
	BrainID   int       `json:"brain_id"`
	Layout    string    `json:"layout"`
	Format    string    `json:"format"`
	Filename  string    `json:"filename"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSnapshotRecord stamps a fetched snapshot with the current record versions.
func NewSnapshotRecord(snapshot model.BrainSnapshot, fetchedAt time.Time) SnapshotRecord {
	return SnapshotRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		BrainID:         snapshot.ID,
		FetchedAt:       fetchedAt.UTC(),
		Snapshot:        snapshot,
	}
}

// NewExportRecord builds a journal entry with a fresh id.
func NewExportRecord(brainID int, layout, format, filename string, size int, createdAt time.Time) ExportRecord {
	return ExportRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              uuid.NewString(),
		BrainID:         brainID,
		Layout:          layout,
		Format:          format,
		Filename:        filename,
		Bytes:           size,
		CreatedAt:       createdAt.UTC(),
	}
}

type Store interface {
	Init(ctx context.Context) error

	SaveSnapshot(ctx context.Context, record SnapshotRecord) error
	GetSnapshot(ctx context.Context, brainID int) (SnapshotRecord, bool, error)
	ListSnapshots(ctx context.Context) ([]SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, brainID int) (bool, error)

	AppendExport(ctx context.Context, record ExportRecord) error
	// ListExports returns journal entries newest first; limit <= 0 returns all.
	ListExports(ctx context.Context, limit int) ([]ExportRecord, error)
	// PruneExports keeps the newest entries and reports how many were removed.
	PruneExports(ctx context.Context, keep int) (int, error)
}
