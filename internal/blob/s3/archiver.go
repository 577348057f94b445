package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sportpools/matchpool/internal/domain"
)

// SettlementArchiveStore provides read access to settlement records for
// archival. The archiver only needs the time-ranged query, not the full
// domain.SettlementStore.
type SettlementArchiveStore interface {
	// ListBefore returns all settlements settled strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.SettlementRecord, error)
}

// AuditArchiveStore provides read access to audit entries for archival.
type AuditArchiveStore interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// ArchiveImpl implements domain.Archiver by querying the stores for old
// records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to be executed after
// the archive has been verified.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	settlements SettlementArchiveStore
	auditSrc    AuditArchiveStore
	audit       domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	settlements SettlementArchiveStore,
	auditSrc AuditArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		settlements: settlements,
		auditSrc:    auditSrc,
		audit:       audit,
	}
}

// ArchiveSettlements queries all settlements before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at
// archive/settlements/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveSettlements(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.settlements.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements marshal: %w", err)
	}

	path := archivePath("settlements", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements upload: %w", err)
	}

	count := int64(len(recs))

	if err := a.audit.Log(ctx, "archive.settlements", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive settlements audit log: %w", err)
	}

	return count, nil
}

// ArchiveAudit queries all audit entries before the cutoff, serializes them
// to JSONL, and uploads the file to S3 at archive/audit/YYYY-MM.jsonl. The
// count of archived entries is returned.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.auditSrc.List(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	return int64(len(entries)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/settlements/2026-08.jsonl
//	archive/audit/2026-08.jsonl
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

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
