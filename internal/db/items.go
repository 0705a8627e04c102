package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

const itemColumns = "i.id, i.name, i.description, i.starting_price, i.image_url, i.is_sold, i.end_time, i.created_at, i.updated_at"

// sortColumns whitelists the catalog sort keys accepted from clients
var sortColumns = map[string]string{
	"createdAt":     "i.created_at",
	"name":          "i.name",
	"startingPrice": "i.starting_price",
	"endTime":       "i.end_time",
}

// highestBidJoin attaches the item's bid count and highest bid (earliest on
// equal amounts) in the same statement, so both come from one snapshot
const highestBidJoin = `
	LEFT JOIN LATERAL (
		SELECT COUNT(*) AS bid_count FROM bids WHERE item_id = i.id
	) bc ON TRUE
	LEFT JOIN LATERAL (
		SELECT b.id, b.amount, b.created_at, b.user_id, u.username
		FROM bids b JOIN users u ON u.id = b.user_id
		WHERE b.item_id = i.id
		ORDER BY b.amount DESC, b.id ASC
		LIMIT 1
	) hb ON TRUE`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, extra ...any) (*models.Item, error) {
	item := &models.Item{}
	dest := append([]any{
		&item.ID, &item.Name, &item.Description, &item.StartingPrice, &item.ImageURL,
		&item.IsSold, &item.EndTime, &item.CreatedAt, &item.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return item, nil
}

// highestBidScan holds the nullable columns of highestBidJoin
type highestBidScan struct {
	count     int
	id        *int
	amount    decimal.NullDecimal
	createdAt *time.Time
	userID    *int
	username  *string
}

func (h *highestBidScan) dest() []any {
	return []any{&h.count, &h.id, &h.amount, &h.createdAt, &h.userID, &h.username}
}

func (h *highestBidScan) status(item *models.Item) *models.ItemStatus {
	status := &models.ItemStatus{
		ItemID:       item.ID,
		CurrentPrice: item.StartingPrice,
		BidCount:     h.count,
		IsSold:       item.IsSold,
		EndTime:      item.EndTime,
	}
	if h.id != nil && h.amount.Valid {
		bidder := &models.Bidder{ID: *h.userID, Username: *h.username}
		status.HighestBid = &models.Bid{
			ID:        *h.id,
			ItemID:    item.ID,
			UserID:    *h.userID,
			Amount:    h.amount.Decimal,
			User:      bidder,
			CreatedAt: *h.createdAt,
		}
		status.HighestBidder = bidder
		status.CurrentPrice = h.amount.Decimal
	}
	return status
}

// CreateItem inserts a new catalog item
func (db *DB) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	created, err := scanItem(db.Pool.QueryRow(ctx,
		`INSERT INTO items AS i (name, description, starting_price, image_url, end_time)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+itemColumns,
		item.Name, item.Description, item.StartingPrice.String(), item.ImageURL, item.EndTime))
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return created, nil
}

// GetItem retrieves an item by id
func (db *DB) GetItem(ctx context.Context, itemID int) (*models.Item, error) {
	item, err := scanItem(db.Pool.QueryRow(ctx, "SELECT "+itemColumns+" FROM items i WHERE i.id = $1", itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get item %d: %w", itemID, biddingerrors.ErrItemNotFound)
		}
		return nil, fmt.Errorf("failed to get item %d: %w", itemID, err)
	}
	return item, nil
}

// UpdateItem changes the sold flag and/or end time. The item row is locked
// so the change serializes with in-flight bids on the same item.
func (db *DB) UpdateItem(ctx context.Context, itemID int, upd models.ItemUpdate) (*models.Item, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int
	if err := tx.QueryRow(ctx, "SELECT id FROM items WHERE id = $1 FOR UPDATE", itemID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update item %d: %w", itemID, biddingerrors.ErrItemNotFound)
		}
		return nil, fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}

	item, err := scanItem(tx.QueryRow(ctx,
		`UPDATE items AS i SET
			is_sold = COALESCE($2, i.is_sold),
			end_time = CASE WHEN $3 THEN NULL ELSE COALESCE($4, i.end_time) END,
			updated_at = NOW()
		 WHERE i.id = $1 RETURNING `+itemColumns,
		itemID, upd.IsSold, upd.ClearEndTime, upd.EndTime))
	if err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, nil
}

// ListItems returns catalog items with derived auction state and the
// total number of matches
func (db *DB) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.ItemView, int, error) {
	var where []string
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(i.name ILIKE $%d OR i.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Sold != nil {
		args = append(args, *filter.Sold)
		where = append(where, fmt.Sprintf("i.is_sold = $%d", len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM items i"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns["createdAt"]
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		order = "ASC"
	}

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT %s, bc.bid_count, hb.id, hb.amount, hb.created_at, hb.user_id, hb.username FROM items i %s%s ORDER BY %s %s, i.id ASC LIMIT $%d OFFSET $%d",
		itemColumns, highestBidJoin, whereSQL, column, order, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	views := []models.ItemView{}
	for rows.Next() {
		var hb highestBidScan
		item, err := scanItem(rows, hb.dest()...)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		status := hb.status(item)
		views = append(views, models.ItemView{
			Item:          *item,
			CurrentPrice:  status.CurrentPrice,
			BidCount:      status.BidCount,
			HighestBidder: status.HighestBidder,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return views, total, nil
}

// ItemStatus derives current price, bid count and highest bid for an item
func (db *DB) ItemStatus(ctx context.Context, itemID int) (*models.ItemStatus, error) {
	var hb highestBidScan
	item, err := scanItem(db.Pool.QueryRow(ctx,
		"SELECT "+itemColumns+", bc.bid_count, hb.id, hb.amount, hb.created_at, hb.user_id, hb.username FROM items i"+
			highestBidJoin+" WHERE i.id = $1", itemID), hb.dest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item status %d: %w", itemID, biddingerrors.ErrItemNotFound)
		}
		return nil, fmt.Errorf("failed to get item status %d: %w", itemID, err)
	}
	return hb.status(item), nil
}
