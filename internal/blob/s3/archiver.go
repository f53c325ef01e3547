package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// HistoryArchiveStore is the narrow read surface the archiver needs from the
// close-record store.
type HistoryArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PositionHistory, error)
}

// Archiver serialises aged records to JSONL and uploads them to object
// storage. Close records are archived copy-only; the notification log is
// additionally pruned from the primary store once its archive upload
// succeeds.
type Archiver struct {
	writer  domain.BlobWriter
	history HistoryArchiveStore
	alerts  domain.NotificationLogStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, history HistoryArchiveStore, alerts domain.NotificationLogStore) *Archiver {
	return &Archiver{
		writer:  writer,
		history: history,
		alerts:  alerts,
	}
}

// ArchiveHistory uploads all close records before the cutoff to
// archive/position_history/YYYY-MM.jsonl and returns the archived count.
// The primary rows are left in place; history is the analytics source.
func (a *Archiver) ArchiveHistory(ctx context.Context, before time.Time) (int64, error) {
	records, err := a.history.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path := archivePath("position_history", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	return int64(len(records)), nil
}

// ArchiveNotificationLog uploads all audit entries before the cutoff to
// archive/notification_log/YYYY-MM.jsonl, then deletes the archived rows
// from the primary store. Deletion runs only after the upload succeeded.
func (a *Archiver) ArchiveNotificationLog(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.alerts.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive notification log query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive notification log marshal: %w", err)
	}

	path := archivePath("notification_log", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive notification log upload: %w", err)
	}

	if _, err := a.alerts.DeleteBefore(ctx, before); err != nil {
		return int64(len(entries)), fmt.Errorf("s3blob: prune notification log: %w", err)
	}

	return int64(len(entries)), nil
}

// archivePath partitions archive files by the year-month of the cutoff.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
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

var _ domain.BlobWriter = (*Writer)(nil)
