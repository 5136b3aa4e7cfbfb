package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// SnapshotArchiveStore provides read access to net-worth history for
// archival purposes. The archiver only requires the query method it actually
// calls, not the full domain store interface.
type SnapshotArchiveStore interface {
	// ListBefore returns points older than the cutoff, oldest first. A
	// non-positive limit returns everything.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.NetWorthPoint, error)
}

// Archiver serializes net-worth history older than the retention cutoff to
// JSONL and uploads it to object storage.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; the sync service deletes only after the upload succeeded.
type Archiver struct {
	writer    domain.BlobWriter
	snapshots SnapshotArchiveStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, snapshots SnapshotArchiveStore) *Archiver {
	return &Archiver{
		writer:    writer,
		snapshots: snapshots,
	}
}

// snapshotLine is the JSONL shape of one archived point.
type snapshotLine struct {
	Timestamp time.Time `json:"timestamp"`
	NetWorth  float64   `json:"net_worth"`
}

// ArchiveSnapshots queries all net-worth points before the cutoff,
// serializes them to JSONL, and uploads the file at
// archive/snapshots/YYYY-MM.jsonl. It returns the count of archived records.
func (a *Archiver) ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error) {
	points, err := a.snapshots.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	lines := make([]snapshotLine, 0, len(points))
	for _, p := range points {
		lines = append(lines, snapshotLine{Timestamp: p.Timestamp, NetWorth: p.NetWorth})
	}

	buf, err := marshalJSONL(lines)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots marshal: %w", err)
	}

	path := archivePath("snapshots", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots upload: %w", err)
	}

	return int64(len(points)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/snapshots/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
