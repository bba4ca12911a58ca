package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// ReceiptArchiveStore provides the read access the archiver needs. The
// Postgres receipt store satisfies it.
type ReceiptArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.SubmissionReceipt, error)
}

// ReceiptArchiver implements domain.Archiver: it exports submission receipts
// older than a cutoff as one JSONL object per run.
//
// Deletion of the archived receipts from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to run after the
// archive has been verified.
type ReceiptArchiver struct {
	writer   domain.BlobWriter
	receipts ReceiptArchiveStore
}

// NewReceiptArchiver creates a ReceiptArchiver.
func NewReceiptArchiver(writer domain.BlobWriter, receipts ReceiptArchiveStore) *ReceiptArchiver {
	return &ReceiptArchiver{
		writer:   writer,
		receipts: receipts,
	}
}

// ArchiveReceipts queries all receipts before the cutoff, serializes them to
// JSONL, and uploads the result. It returns the object key written and the
// number of receipts archived; when there is nothing to archive it returns
// an empty key and zero without touching storage.
func (a *ReceiptArchiver) ArchiveReceipts(ctx context.Context, before time.Time) (string, int, error) {
	receipts, err := a.receipts.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list receipts for archive: %w", err)
	}
	if len(receipts) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range receipts {
		if err := enc.Encode(r); err != nil {
			return "", 0, fmt.Errorf("s3blob: encode receipt %s: %w", r.ID, err)
		}
	}

	key := fmt.Sprintf("receipts/%s.jsonl", before.UTC().Format("2006/01/02"))
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return "", 0, err
	}

	return key, len(receipts), nil
}
