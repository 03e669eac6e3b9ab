package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// The archiver only needs the time-ranged query methods it actually calls,
// not the full domain store interfaces. The Postgres stores satisfy these
// implicitly.
// ---------------------------------------------------------------------------

// PositionArchiveStore provides read access to closed positions for archival.
type PositionArchiveStore interface {
	// ListClosedBefore returns all positions closed strictly before the
	// given cutoff time.
	ListClosedBefore(ctx context.Context, cutoff time.Time) ([]domain.PositionRecord, error)
}

// FillArchiveStore provides read access to fills for archival.
type FillArchiveStore interface {
	// ListBefore returns all fills executed strictly before the given
	// cutoff time.
	ListBefore(ctx context.Context, cutoff time.Time) ([]domain.FillRecord, error)
}

// Archiver serializes old trading records to JSONL and uploads them to S3.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here. That is a separate, explicit step to be executed after the
// uploaded archive has been verified.
type Archiver struct {
	writer    *Writer
	reader    *Reader
	positions PositionArchiveStore
	fills     FillArchiveStore
}

// NewArchiver creates an Archiver reading trading history from the given
// stores and writing archives through writer. The reader is used to verify
// each upload.
func NewArchiver(writer *Writer, reader *Reader, positions PositionArchiveStore, fills FillArchiveStore) *Archiver {
	return &Archiver{
		writer:    writer,
		reader:    reader,
		positions: positions,
		fills:     fills,
	}
}

// ArchivePositions uploads all positions closed before the cutoff to
// archive/positions/YYYY-MM.jsonl and returns the number of records written.
func (a *Archiver) ArchivePositions(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.positions.ListClosedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	count, err := uploadJSONL(ctx, a, archivePath("positions", before), recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions: %w", err)
	}
	return count, nil
}

// ArchiveFills uploads all fills executed before the cutoff to
// archive/fills/YYYY-MM.jsonl and returns the number of records written.
func (a *Archiver) ArchiveFills(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.fills.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive fills query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	count, err := uploadJSONL(ctx, a, archivePath("fills", before), recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive fills: %w", err)
	}
	return count, nil
}

// uploadJSONL serializes records to JSONL, writes them to key, and verifies
// the object landed.
func uploadJSONL[T any](ctx context.Context, a *Archiver, key string, records []T) (int64, error) {
	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, err
	}

	if err := a.writer.Upload(ctx, key, buf); err != nil {
		return 0, err
	}

	ok, err := a.reader.Exists(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", key, err)
	}
	if !ok {
		return 0, fmt.Errorf("verify %s: object missing after upload", key)
	}

	return int64(len(records)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/positions/2025-01.jsonl
//	archive/fills/2025-01.jsonl
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
