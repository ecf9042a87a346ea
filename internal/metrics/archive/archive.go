// Package archive writes every materialized refresh to object storage as JSON
// so past refresh outputs can be compared after the table has been replaced.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ops_reporting_backend/internal/adapters/storage"
	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/platform/logger"
)

const contentType = "application/json"

// Entry is one archived refresh.
type Entry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ArchivedAt   time.Time `json:"archivedAt"`
	DownloadURL  string    `json:"downloadUrl,omitempty"`
	URLExpiresAt time.Time `json:"urlExpiresAt,omitzero"`
}

// Archiver stores refresh payloads in one bucket.
type Archiver struct {
	store  storage.StorageService
	bucket string
	log    *logger.Logger
}

// New creates an archiver writing to bucket.
func New(store storage.StorageService, bucket string, log *logger.Logger) *Archiver {
	return &Archiver{store: store, bucket: bucket, log: log}
}

// RegisterHandlers subscribes the archiver to refresh events.
func (a *Archiver) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MetricsRefreshed{}.EventName(), events.HandlerFunc(a.handleRefreshed))
}

func (a *Archiver) handleRefreshed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MetricsRefreshed)
	if !ok {
		return nil
	}
	if len(e.Payload) == 0 {
		return nil
	}

	key := Key(e.Year, e.OccurredAt(), e.RefreshID.String())
	if err := a.store.PutObject(ctx, a.bucket, key, contentType, bytes.NewReader(e.Payload), int64(len(e.Payload))); err != nil {
		return fmt.Errorf("archive refresh %s: %w", e.RefreshID, err)
	}
	if a.log != nil {
		a.log.Info("refresh archived", "year", e.Year, "refreshId", e.RefreshID, "key", key, "bytes", len(e.Payload))
	}
	return nil
}

// Key is the object key of a refresh: <year>/<UTC timestamp>_<refresh id>.json.
// Keys of one year sort chronologically.
func Key(year int, at time.Time, refreshID string) string {
	return fmt.Sprintf("%d/%s_%s.json", year, at.UTC().Format("20060102T150405Z"), refreshID)
}

// List returns the archived refreshes of year, newest first, with download links.
func (a *Archiver) List(ctx context.Context, year int) ([]Entry, error) {
	objects, err := a.store.ListObjects(ctx, a.bucket, strconv.Itoa(year)+"/")
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(objects))
	for i := len(objects) - 1; i >= 0; i-- {
		obj := objects[i]
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		entry := Entry{Key: obj.Key, Size: obj.Size, ArchivedAt: obj.LastModified}
		if link, err := a.store.GenerateDownloadURL(ctx, a.bucket, obj.Key); err == nil {
			entry.DownloadURL = link.URL
			entry.URLExpiresAt = link.ExpiresAt
		} else if a.log != nil {
			a.log.Warn("archive link failed", "key", obj.Key, "error", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Prune deletes every archived refresh last modified before cutoff.
func (a *Archiver) Prune(ctx context.Context, before time.Time) (int, error) {
	objects, err := a.store.ListObjects(ctx, a.bucket, "")
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, obj := range objects {
		if !obj.LastModified.Before(before) {
			continue
		}
		if err := a.store.DeleteObject(ctx, a.bucket, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
