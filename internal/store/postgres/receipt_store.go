package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// ReceiptStore implements domain.ReceiptStore using PostgreSQL.
type ReceiptStore struct {
	pool *pgxpool.Pool
}

// NewReceiptStore creates a ReceiptStore backed by the given connection pool.
func NewReceiptStore(pool *pgxpool.Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Save inserts a new submission receipt.
func (s *ReceiptStore) Save(ctx context.Context, r domain.SubmissionReceipt) error {
	orders, err := json.Marshal(r.Orders)
	if err != nil {
		return fmt.Errorf("postgres: marshal receipt orders: %w", err)
	}

	const query = `
		INSERT INTO submission_receipts (
			id, order_ids, orders, subtotal, service_charge, grand_total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.OrderIDs, orders,
		r.Subtotal, r.ServiceCharge, r.GrandTotal,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save receipt %s: %w", r.ID, err)
	}
	return nil
}

// ListBefore returns receipts created strictly before the cutoff, oldest
// first.
func (s *ReceiptStore) ListBefore(ctx context.Context, before time.Time) ([]domain.SubmissionReceipt, error) {
	const query = `
		SELECT id, order_ids, orders, subtotal, service_charge, grand_total, created_at
		FROM submission_receipts
		WHERE created_at < $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list receipts: %w", err)
	}
	defer rows.Close()

	var out []domain.SubmissionReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate receipts: %w", err)
	}
	return out, nil
}

// DeleteBefore removes receipts created strictly before the cutoff.
func (s *ReceiptStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM submission_receipts WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete receipts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanReceipt(row pgx.Row) (domain.SubmissionReceipt, error) {
	var (
		r         domain.SubmissionReceipt
		ordersRaw []byte
	)
	if err := row.Scan(
		&r.ID, &r.OrderIDs, &ordersRaw,
		&r.Subtotal, &r.ServiceCharge, &r.GrandTotal,
		&r.CreatedAt,
	); err != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("postgres: scan receipt: %w", err)
	}
	if err := json.Unmarshal(ordersRaw, &r.Orders); err != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("postgres: unmarshal receipt orders: %w", err)
	}
	return r, nil
}
