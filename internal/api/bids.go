package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/models"
)

type itemRef struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
}

func itemRefOf(item *models.Item) itemRef {
	return itemRef{ID: item.ID, Name: item.Name, StartingPrice: item.StartingPrice}
}

// GetItemBids returns a page of an item's bids, highest first
func (h *Handler) GetItemBids(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		fail(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	page, err := h.Reads.ListBids(r.Context(), itemID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve bids")
		return
	}
	bids := page.Bids
	if bids == nil {
		bids = []models.Bid{}
	}

	respond(w, http.StatusOK, "Bids retrieved successfully", map[string]any{
		"item":       itemRefOf(page.Item),
		"bids":       bids,
		"pagination": pageMeta(page.Pagination, "totalBids", "bidsPerPage"),
	})
}

type highestBidJSON struct {
	ID        int             `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	User      *models.Bidder  `json:"user"`
	CreatedAt time.Time       `json:"createdAt"`
}

// GetHighestBid returns an item's current price and leading bid
func (h *Handler) GetHighestBid(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		fail(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	item, status, err := h.Reads.Highest(r.Context(), itemID)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve highest bid")
		return
	}

	var highest *highestBidJSON
	if b := status.HighestBid; b != nil {
		highest = &highestBidJSON{ID: b.ID, Amount: b.Amount, User: b.User, CreatedAt: b.CreatedAt}
	}
	respond(w, http.StatusOK, "Highest bid retrieved successfully", map[string]any{
		"item":         itemRefOf(item),
		"currentPrice": status.CurrentPrice,
		"bidCount":     status.BidCount,
		"highestBid":   highest,
	})
}

// PlaceBid submits a bid through the acceptance pipeline
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ItemID int              `json:"itemId"`
		Amount *decimal.Decimal `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ItemID <= 0 || req.Amount == nil || req.Amount.IsZero() {
		fail(w, http.StatusBadRequest, "Item ID and amount are required")
		return
	}

	accepted, err := h.Bids.PlaceBid(r.Context(), req.ItemID, user.Bidder(), *req.Amount)
	if err != nil {
		h.writeError(w, r, err, "Failed to place bid")
		return
	}

	bid := accepted.Bid
	bid.Item = &models.ItemSummary{
		ID:            accepted.Item.ID,
		Name:          accepted.Item.Name,
		ImageURL:      accepted.Item.ImageURL,
		IsSold:        accepted.Item.IsSold,
		StartingPrice: accepted.Item.StartingPrice,
	}
	respond(w, http.StatusCreated, "Bid placed successfully", map[string]any{
		"bid":          bid,
		"currentPrice": accepted.CurrentPrice,
		"bidCount":     accepted.BidCount,
	})
}

// GetMyBids returns the caller's bid history, newest first
func (h *Handler) GetMyBids(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	page, err := h.Reads.UserBids(r.Context(), user.ID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve bids")
		return
	}
	bids := page.Bids
	if bids == nil {
		bids = []models.Bid{}
	}
	respond(w, http.StatusOK, "User bids retrieved successfully", map[string]any{
		"bids":       bids,
		"pagination": pageMeta(page.Pagination, "totalBids", "bidsPerPage"),
	})
}
