package realtime

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/models"
)

// Inbound events
const (
	EventJoinItem      = "join-item"
	EventLeaveItem     = "leave-item"
	EventPlaceBid      = "place-bid"
	EventGetBidHistory = "get-bid-history"
)

// Outbound events
const (
	EventItemStatus = "item-status"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventNewBid     = "new-bid"
	EventBidSuccess = "bid-success"
	EventBidError   = "bid-error"
	EventBidHistory = "bid-history"
	EventError      = "error"
)

// Envelope is the wire frame in both directions: {"event": "...", "data": {...}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame before encoding
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type itemRequest struct {
	ItemID int `json:"itemId"`
}

type placeBidRequest struct {
	ItemID int             `json:"itemId"`
	Amount decimal.Decimal `json:"amount"`
}

type historyRequest struct {
	ItemID int `json:"itemId"`
	Limit  int `json:"limit"`
}

// ItemStatusPayload is sent to a connection right after it joins a room
type ItemStatusPayload struct {
	ItemID        int             `json:"itemId"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	BidCount      int             `json:"bidCount"`
	HighestBidder *models.Bidder  `json:"highestBidder"`
	IsSold        bool            `json:"isSold"`
	EndTime       *time.Time      `json:"endTime"`
}

// PresencePayload announces a viewer joining or leaving a room
type PresencePayload struct {
	ItemID    int           `json:"itemId"`
	User      models.Bidder `json:"user"`
	Timestamp time.Time     `json:"timestamp"`
}

// BidSuccessPayload acknowledges an accepted bid to its submitter
type BidSuccessPayload struct {
	Message string          `json:"message"`
	Bid     models.BidEvent `json:"bid"`
}

// HistoryEntry is one bid in a bid-history reply
type HistoryEntry struct {
	ID        int             `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	User      *models.Bidder  `json:"user"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryPayload is the reply to get-bid-history
type HistoryPayload struct {
	ItemID int            `json:"itemId"`
	Bids   []HistoryEntry `json:"bids"`
}

// ErrorPayload carries error and bid-error messages
type ErrorPayload struct {
	Message string `json:"message"`
}

func statusPayload(s *models.ItemStatus) ItemStatusPayload {
	return ItemStatusPayload{
		ItemID:        s.ItemID,
		CurrentPrice:  s.CurrentPrice,
		BidCount:      s.BidCount,
		HighestBidder: s.HighestBidder,
		IsSold:        s.IsSold,
		EndTime:       s.EndTime,
	}
}
