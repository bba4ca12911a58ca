package domain

import (
	"context"
	"time"
)

// ReceiptStore persists submission receipts. Implementations live in
// internal/store/postgres.
type ReceiptStore interface {
	// Save inserts one receipt.
	Save(ctx context.Context, r SubmissionReceipt) error

	// ListBefore returns all receipts created strictly before the cutoff,
	// oldest first.
	ListBefore(ctx context.Context, before time.Time) ([]SubmissionReceipt, error)

	// DeleteBefore removes receipts created strictly before the cutoff and
	// returns the number deleted. Called only after an archive has been
	// verified.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
