// Package cart implements the local order cart: staged stake selections with
// derived pricing and the eligibility rules that keep a stake from being
// attached to a round that is no longer accepting it.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// RoundSource exposes the projected live round per category. Satisfied by
// *projection.Projection. The engine only reads from it; the projection's
// single writer stays the event dispatcher.
type RoundSource interface {
	Current(category domain.GameCategory) (domain.Round, bool)
}

// Submitter hands one finalized cart snapshot to the authority. Satisfied by
// *gamehub.RESTClient.
type Submitter interface {
	SubmitStakes(ctx context.Context, sub domain.Submission) (domain.SubmissionReceipt, error)
}

// Notifier surfaces transient user-facing notifications. Satisfied by
// *notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Engine accumulates candidate stakes, computes derived totals, and enforces
// eligibility before allowing submission. Items are mutated only by explicit
// user-triggered calls; the engine never mutates in the background.
type Engine struct {
	rounds   RoundSource
	wallet   domain.BalanceProvider
	gateway  Submitter
	receipts domain.ReceiptStore // optional
	notifier Notifier            // optional
	logger   *slog.Logger

	mu    sync.Mutex
	items []domain.CartItem
}

// NewEngine creates a cart engine. rounds, wallet, and gateway are required;
// receipts and notifier may be nil.
func NewEngine(
	rounds RoundSource,
	wallet domain.BalanceProvider,
	gateway Submitter,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		rounds:  rounds,
		wallet:  wallet,
		gateway: gateway,
		logger:  logger.With(slog.String("component", "cart")),
	}
}

// WithReceiptStore attaches a journal for accepted submissions.
func (e *Engine) WithReceiptStore(s domain.ReceiptStore) *Engine {
	e.receipts = s
	return e
}

// WithNotifier attaches a notification surface for submission outcomes.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// AddItem stages one stake against the category's live round. It rejects
// synchronously when the stake is not positive, the selection set is empty
// or over the category bound, an option is not offered by the round, or the
// round is not currently open. On success it returns the new item's id.
func (e *Engine) AddItem(category domain.GameCategory, roundID string, selections []string, stake int64) (string, error) {
	if stake <= 0 {
		return "", fmt.Errorf("cart: %w: %d", domain.ErrInvalidStake, stake)
	}
	if !category.Valid() {
		return "", fmt.Errorf("cart: %w: %q", domain.ErrUnknownCategory, category)
	}

	selections = dedupe(selections)
	if len(selections) == 0 {
		return "", fmt.Errorf("cart: %w", domain.ErrEmptySelection)
	}
	if max := category.MaxSelections(); len(selections) > max {
		return "", fmt.Errorf("cart: %w: %d selected, at most %d for %s",
			domain.ErrTooManySelections, len(selections), max, category)
	}

	round, ok := e.rounds.Current(category)
	if !ok || round.ID != roundID {
		return "", fmt.Errorf("cart: round %s: %w", roundID, domain.ErrRoundNotOpen)
	}
	if !round.AcceptingStakes() {
		return "", fmt.Errorf("cart: round %s is %s: %w", roundID, round.Status, domain.ErrRoundNotOpen)
	}
	for _, s := range selections {
		if !round.HasOption(s) {
			return "", fmt.Errorf("cart: %w: %q", domain.ErrUnknownOption, s)
		}
	}

	item := domain.CartItem{
		ID:         uuid.NewString(),
		Category:   category,
		RoundID:    roundID,
		Selections: selections,
		Stake:      stake,
	}

	e.mu.Lock()
	e.items = append(e.items, item)
	e.mu.Unlock()

	e.logger.Debug("item staged",
		slog.String("item", item.ID),
		slog.String("round", roundID),
		slog.Int64("stake", stake),
	)
	return item.ID, nil
}

// RemoveItem removes one item by id. Removing an unknown id is a no-op.
func (e *Engine) RemoveItem(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, item := range e.items {
		if item.ID == itemID {
			e.items = append(e.items[:i], e.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart. Irreversible; the UI gates it behind explicit user
// confirmation.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.items = nil
	e.mu.Unlock()
}

// Items returns the staged items in insertion order (= display order).
func (e *Engine) Items() []domain.CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneItems(e.items)
}

// Totals recomputes the derived pricing from the current items. Pure with
// respect to the cart: safe to call on every render.
func (e *Engine) Totals() domain.CartTotals {
	e.mu.Lock()
	items := cloneItems(e.items)
	e.mu.Unlock()
	return e.computeTotals(items)
}

// Submit snapshots the cart, re-validates that every item's round is still
// open, checks the wallet balance, and hands the snapshot to the gateway as
// one request. On success the cart clears itself and the receipt is
// journaled; on any failure the cart is left intact so the user can adjust
// and retry.
func (e *Engine) Submit(ctx context.Context) (domain.SubmissionReceipt, error) {
	e.mu.Lock()
	items := cloneItems(e.items)
	e.mu.Unlock()

	if len(items) == 0 {
		return domain.SubmissionReceipt{}, fmt.Errorf("cart: %w", domain.ErrEmptyCart)
	}

	// Race check: a round may have closed since the items were staged. The
	// whole batch is rejected so the user never loses part of an order
	// silently.
	var stale []string
	for _, item := range items {
		round, ok := e.rounds.Current(item.Category)
		if !ok || round.ID != item.RoundID || !round.AcceptingStakes() {
			stale = append(stale, item.ID)
		}
	}
	if len(stale) > 0 {
		return domain.SubmissionReceipt{}, &domain.StaleItemsError{ItemIDs: stale}
	}

	totals := e.computeTotals(items)

	// Fail fast on an underfunded wallet instead of a guaranteed-reject
	// round trip.
	balance, err := e.wallet.Balance(ctx)
	if err != nil {
		return domain.SubmissionReceipt{}, fmt.Errorf("cart: read wallet balance: %w", err)
	}
	if totals.GrandTotal > balance {
		return domain.SubmissionReceipt{}, fmt.Errorf(
			"cart: need %d, have %d: %w", totals.GrandTotal, balance, domain.ErrInsufficientBalance)
	}

	sub := domain.Submission{
		Orders:        toOrders(items),
		Subtotal:      totals.Subtotal,
		ServiceCharge: totals.ServiceCharge,
		GrandTotal:    totals.GrandTotal,
	}

	receipt, err := e.gateway.SubmitStakes(ctx, sub)
	if err != nil {
		e.notify(ctx, "submission_rejected", "Order rejected", err.Error())
		return domain.SubmissionReceipt{}, err
	}
	receipt.ID = uuid.NewString()

	e.mu.Lock()
	e.items = nil
	e.mu.Unlock()

	if e.receipts != nil {
		if err := e.receipts.Save(ctx, receipt); err != nil {
			// The authority accepted the batch; a journal failure must not
			// fail the submission.
			e.logger.Error("journal receipt failed",
				slog.String("receipt", receipt.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	e.notify(ctx, "submission_accepted", "Order placed",
		fmt.Sprintf("%d stake(s), total %d", len(sub.Orders), sub.GrandTotal))

	return receipt, nil
}

// computeTotals derives pricing from a snapshot of items. The potential
// payout sums stake x multiplier over every selected option still known to
// the projection; it is informational only.
func (e *Engine) computeTotals(items []domain.CartItem) domain.CartTotals {
	totals := domain.CartTotals{Items: len(items)}
	for _, item := range items {
		totals.Subtotal += item.Stake

		round, ok := e.rounds.Current(item.Category)
		if !ok || round.ID != item.RoundID {
			continue
		}
		for _, s := range item.Selections {
			if m, ok := round.MultiplierFor(s); ok {
				totals.PotentialPayout += float64(item.Stake) * m
			}
		}
	}
	if totals.Items > 0 {
		totals.ServiceCharge = domain.ServiceChargeFor(totals.Subtotal)
	}
	totals.GrandTotal = totals.Subtotal + totals.ServiceCharge
	return totals
}

func (e *Engine) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

func toOrders(items []domain.CartItem) []domain.StakeOrder {
	orders := make([]domain.StakeOrder, len(items))
	for i, item := range items {
		orders[i] = domain.StakeOrder{
			ItemID:     item.ID,
			RoundID:    item.RoundID,
			Category:   item.Category,
			Selections: item.Selections,
			Stake:      item.Stake,
		}
	}
	return orders
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// dedupe removes duplicate selections, preserving first-seen order.
func dedupe(selections []string) []string {
	seen := make(map[string]struct{}, len(selections))
	out := make([]string, 0, len(selections))
	for _, s := range selections {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
