package bidding

import (
	"context"
	"fmt"
	"math"

	"github.com/xtrntr/auction/internal/models"
)

// Page size limits shared by the read endpoints
const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultHistorySize = 10
	MaxHistorySize     = 50
)

// BidPage is one page of an item's bids
type BidPage struct {
	Item       *models.Item
	Bids       []models.Bid
	Pagination models.Pagination
}

// UserBidPage is one page of a user's bid history
type UserBidPage struct {
	Bids       []models.Bid
	Pagination models.Pagination
}

// Reconciler serves the read path straight from the ledger, so every reader
// sees the same state that was broadcast to live viewers.
type Reconciler struct {
	ledger Ledger
}

// NewReconciler creates a read-path reconciler over ledger
func NewReconciler(ledger Ledger) *Reconciler {
	return &Reconciler{ledger: ledger}
}

// Status returns the derived state of an item
func (r *Reconciler) Status(ctx context.Context, itemID int) (*models.ItemStatus, error) {
	return r.ledger.ItemStatus(ctx, itemID)
}

// Highest returns the item together with its derived state
func (r *Reconciler) Highest(ctx context.Context, itemID int) (*models.Item, *models.ItemStatus, error) {
	item, err := r.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	status, err := r.ledger.ItemStatus(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	return item, status, nil
}

// GetItem returns the item with current price, bid count, highest bidder
// and every bid ordered by amount
func (r *Reconciler) GetItem(ctx context.Context, itemID int) (*models.ItemView, error) {
	item, status, err := r.Highest(ctx, itemID)
	if err != nil {
		return nil, err
	}
	bids, _, err := r.ledger.ListItemBids(ctx, itemID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for item %d: %w", itemID, err)
	}
	view := ItemViewOf(item, status)
	view.Bids = bids
	return &view, nil
}

// ListBids returns a page of an item's bids, amount desc then newest first
func (r *Reconciler) ListBids(ctx context.Context, itemID, page, limit int) (*BidPage, error) {
	page, limit = NormalizePage(page, limit, DefaultPageSize, MaxPageSize)

	item, err := r.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	bids, total, err := r.ledger.ListItemBids(ctx, itemID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for item %d: %w", itemID, err)
	}
	return &BidPage{
		Item:       item,
		Bids:       bids,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// RecentBids returns the newest bids of an item
func (r *Reconciler) RecentBids(ctx context.Context, itemID, limit int) ([]models.Bid, error) {
	_, limit = NormalizePage(1, limit, DefaultHistorySize, MaxHistorySize)
	if _, err := r.ledger.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return r.ledger.RecentItemBids(ctx, itemID, limit)
}

// UserBids returns a page of the user's own bids, newest first
func (r *Reconciler) UserBids(ctx context.Context, userID, page, limit int) (*UserBidPage, error) {
	page, limit = NormalizePage(page, limit, DefaultPageSize, MaxPageSize)
	bids, total, err := r.ledger.ListUserBids(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for user %d: %w", userID, err)
	}
	return &UserBidPage{Bids: bids, Pagination: models.NewPagination(page, limit, total)}, nil
}

// ItemViewOf merges an item with its derived state
func ItemViewOf(item *models.Item, status *models.ItemStatus) models.ItemView {
	return models.ItemView{
		Item:          *item,
		CurrentPrice:  status.CurrentPrice,
		BidCount:      status.BidCount,
		HighestBidder: status.HighestBidder,
	}
}

// NormalizePage clamps page to >= 1 and limit to [1, max], using def when
// unset. page is capped so (page-1)*limit never overflows.
func NormalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > math.MaxInt/max {
		page = math.MaxInt / max
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
