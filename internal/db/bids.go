package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

var _ bidding.Ledger = (*DB)(nil)

// AppendBid locks the item row, derives the current price, runs check and
// inserts the bid in one transaction. Concurrent appends on the same item
// queue on the row lock, so each is checked against the price left by the
// previous one.
func (db *DB) AppendBid(ctx context.Context, nb models.NewBid, check bidding.CheckFunc) (*models.AcceptedBid, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row for update to serialize bids on this item
	item, err := scanItem(tx.QueryRow(ctx, "SELECT "+itemColumns+" FROM items i WHERE i.id = $1 FOR UPDATE", nb.ItemID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get item %d: %w", nb.ItemID, err)
	}

	current := decimal.Zero
	if item != nil {
		current = item.StartingPrice
		var highest decimal.NullDecimal
		err := tx.QueryRow(ctx, "SELECT MAX(amount) FROM bids WHERE item_id = $1", nb.ItemID).Scan(&highest)
		if err != nil {
			return nil, fmt.Errorf("failed to get current price: %w", err)
		}
		if highest.Valid {
			current = highest.Decimal
		}
	}

	if err := check(item, current, nb.Amount); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("append bid: %w", biddingerrors.ErrItemNotFound)
	}

	bid := models.Bid{ItemID: nb.ItemID, UserID: nb.Bidder.ID}
	err = tx.QueryRow(ctx,
		"INSERT INTO bids (item_id, user_id, amount) VALUES ($1, $2, $3) RETURNING id, amount, created_at",
		nb.ItemID, nb.Bidder.ID, nb.Amount.String()).Scan(&bid.ID, &bid.Amount, &bid.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}

	accepted := &models.AcceptedBid{Bid: bid, Item: *item}
	var price decimal.NullDecimal
	err = tx.QueryRow(ctx, "SELECT COUNT(*), MAX(amount) FROM bids WHERE item_id = $1", nb.ItemID).Scan(&accepted.BidCount, &price)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute item state: %w", err)
	}
	accepted.CurrentPrice = price.Decimal

	var bidder models.Bidder
	err = tx.QueryRow(ctx, "SELECT id, username FROM users WHERE id = $1", nb.Bidder.ID).Scan(&bidder.ID, &bidder.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder %d: %w", nb.Bidder.ID, err)
	}
	accepted.Bid.User = &bidder

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return accepted, nil
}

// ListItemBids returns an item's bids by amount desc, newest first on ties
func (db *DB) ListItemBids(ctx context.Context, itemID, limit, offset int) ([]models.Bid, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids WHERE item_id = $1", itemID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	var lim *int
	if limit > 0 {
		lim = &limit
	}
	bids, err := db.queryBids(ctx,
		`SELECT b.id, b.item_id, b.user_id, b.amount, b.created_at, u.username
		 FROM bids b JOIN users u ON u.id = b.user_id
		 WHERE b.item_id = $1
		 ORDER BY b.amount DESC, b.created_at DESC, b.id DESC
		 LIMIT $2 OFFSET $3`, itemID, lim, offset)
	if err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// RecentItemBids returns the newest bids of an item
func (db *DB) RecentItemBids(ctx context.Context, itemID, limit int) ([]models.Bid, error) {
	return db.queryBids(ctx,
		`SELECT b.id, b.item_id, b.user_id, b.amount, b.created_at, u.username
		 FROM bids b JOIN users u ON u.id = b.user_id
		 WHERE b.item_id = $1
		 ORDER BY b.created_at DESC, b.id DESC
		 LIMIT $2`, itemID, limit)
}

// ListUserBids returns a user's bids newest first with item summaries
func (db *DB) ListUserBids(ctx context.Context, userID, limit, offset int) ([]models.Bid, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT b.id, b.item_id, b.user_id, b.amount, b.created_at,
		        i.id, i.name, i.image_url, i.is_sold, i.starting_price
		 FROM bids b JOIN items i ON i.id = b.item_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC, b.id DESC
		 LIMIT $2 OFFSET $3`, userID, lim, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var bid models.Bid
		summary := &models.ItemSummary{}
		if err := rows.Scan(&bid.ID, &bid.ItemID, &bid.UserID, &bid.Amount, &bid.CreatedAt,
			&summary.ID, &summary.Name, &summary.ImageURL, &summary.IsSold, &summary.StartingPrice); err != nil {
			return nil, 0, fmt.Errorf("failed to scan bid: %w", err)
		}
		bid.Item = summary
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to get user bids: %w", err)
	}
	return bids, total, nil
}

func (db *DB) queryBids(ctx context.Context, query string, args ...any) ([]models.Bid, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var bid models.Bid
		user := &models.Bidder{}
		if err := rows.Scan(&bid.ID, &bid.ItemID, &bid.UserID, &bid.Amount, &bid.CreatedAt, &user.Username); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		user.ID = bid.UserID
		bid.User = user
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	return bids, nil
}
