package bidding

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/models"
)

//go:generate mockgen -destination=mock_ledger.go -package=bidding github.com/xtrntr/auction/internal/bidding Ledger

// CheckFunc decides whether a bid may be appended. item is nil when the
// item does not exist; currentPrice is derived from the ledger at that instant.
type CheckFunc func(item *models.Item, currentPrice, amount decimal.Decimal) error

// Ledger is the append-only bid store and the single source of truth for
// derived item state.
type Ledger interface {
	// GetItem returns the item or biddingerrors.ErrItemNotFound.
	GetItem(ctx context.Context, itemID int) (*models.Item, error)

	// ItemStatus derives current price, bid count and highest bid from the
	// stored bids. Returns biddingerrors.ErrItemNotFound for unknown items.
	ItemStatus(ctx context.Context, itemID int) (*models.ItemStatus, error)

	// AppendBid loads the item and its current price, runs check and, if it
	// passes, inserts the bid. The load, check and insert are atomic with
	// respect to other appends on the same item. The returned AcceptedBid
	// carries the price and count recomputed after the insert.
	AppendBid(ctx context.Context, bid models.NewBid, check CheckFunc) (*models.AcceptedBid, error)

	// ListItemBids returns bids ordered by amount desc, then created desc,
	// with the total count. limit <= 0 returns every bid.
	ListItemBids(ctx context.Context, itemID, limit, offset int) ([]models.Bid, int, error)

	// RecentItemBids returns the latest bids for an item, newest first.
	RecentItemBids(ctx context.Context, itemID, limit int) ([]models.Bid, error)

	// ListUserBids returns a user's bids newest first with item summaries.
	ListUserBids(ctx context.Context, userID, limit, offset int) ([]models.Bid, int, error)
}
