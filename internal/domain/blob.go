package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports old submission receipts to blob storage. It returns the
// object key written and the number of receipts archived.
type Archiver interface {
	ArchiveReceipts(ctx context.Context, before time.Time) (string, int, error)
}
