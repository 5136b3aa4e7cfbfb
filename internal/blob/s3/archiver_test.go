package s3blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

type fakeWriter struct {
	path        string
	contentType string
	body        string
	err         error
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	b, _ := io.ReadAll(data)
	f.path = path
	f.contentType = contentType
	f.body = string(b)
	return nil
}

type fakeArchiveStore struct {
	points []domain.NetWorthPoint
}

func (f *fakeArchiveStore) ListBefore(_ context.Context, cutoff time.Time, _ int) ([]domain.NetWorthPoint, error) {
	var out []domain.NetWorthPoint
	for _, p := range f.points {
		if p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestArchiveSnapshotsUploadsJSONL(t *testing.T) {
	cutoff := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{points: []domain.NetWorthPoint{
		{Timestamp: cutoff.Add(-48 * time.Hour), NetWorth: 100_000},
		{Timestamp: cutoff.Add(-24 * time.Hour), NetWorth: 101_500},
		{Timestamp: cutoff.Add(24 * time.Hour), NetWorth: 99_000}, // inside retention
	}}
	writer := &fakeWriter{}

	count, err := NewArchiver(writer, store).ArchiveSnapshots(context.Background(), cutoff)
	require.NoError(t, err)

	assert.Equal(t, int64(2), count)
	assert.Equal(t, "archive/snapshots/2025-03.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	lines := strings.Split(strings.TrimSpace(writer.body), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"net_worth":100000`)
	assert.Contains(t, lines[1], `"net_worth":101500`)
}

func TestArchiveSnapshotsNothingToArchive(t *testing.T) {
	writer := &fakeWriter{}

	count, err := NewArchiver(writer, &fakeArchiveStore{}).ArchiveSnapshots(
		context.Background(), time.Now())
	require.NoError(t, err)

	assert.Zero(t, count)
	assert.Empty(t, writer.path, "no upload should happen for an empty batch")
}

func TestArchiveSnapshotsUploadFailure(t *testing.T) {
	store := &fakeArchiveStore{points: []domain.NetWorthPoint{
		{Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), NetWorth: 1},
	}}
	writer := &fakeWriter{err: errors.New("bucket unavailable")}

	_, err := NewArchiver(writer, store).ArchiveSnapshots(
		context.Background(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
