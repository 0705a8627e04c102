package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered user
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Bidder is the public view of a user attached to bids and events.
// It never carries email or credentials.
type Bidder struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Bidder returns the public view of the user
func (u *User) Bidder() Bidder {
	return Bidder{ID: u.ID, Username: u.Username}
}

// Item represents an auction lot
type Item struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	ImageURL      *string         `json:"imageUrl"`
	IsSold        bool            `json:"isSold"`
	EndTime       *time.Time      `json:"endTime"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Ended reports whether the item's auction end time has passed at now
func (i *Item) Ended(now time.Time) bool {
	return i.EndTime != nil && now.After(*i.EndTime)
}

// ItemSummary is the short item view attached to a user's bid history
type ItemSummary struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	IsSold        bool            `json:"isSold"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
}

// Bid is an immutable ledger entry
type Bid struct {
	ID        int             `json:"id"`
	ItemID    int             `json:"itemId"`
	UserID    int             `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	User      *Bidder         `json:"user,omitempty"`
	Item      *ItemSummary    `json:"item,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewBid is a bid attempt that has not been persisted yet
type NewBid struct {
	ItemID int
	Bidder Bidder
	Amount decimal.Decimal
}

// ItemStatus is the derived state of an item computed from its bids
type ItemStatus struct {
	ItemID        int             `json:"itemId"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	BidCount      int             `json:"bidCount"`
	HighestBid    *Bid            `json:"highestBid"`
	HighestBidder *Bidder         `json:"highestBidder"`
	IsSold        bool            `json:"isSold"`
	EndTime       *time.Time      `json:"endTime"`
}

// AcceptedBid is the result of a successful append to the ledger
type AcceptedBid struct {
	Bid          Bid
	Item         Item
	CurrentPrice decimal.Decimal
	BidCount     int
}

// BidEvent is the payload broadcast to an item room when a bid is accepted
type BidEvent struct {
	ID           int             `json:"id"`
	ItemID       int             `json:"itemId"`
	Amount       decimal.Decimal `json:"amount"`
	User         Bidder          `json:"user"`
	CreatedAt    time.Time       `json:"createdAt"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	BidCount     int             `json:"bidCount"`
}

// ItemFilter selects and orders catalog listings
type ItemFilter struct {
	Search    string
	Sold      *bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ItemUpdate carries the mutable catalog fields. Nil means unchanged;
// ClearEndTime removes the end time.
type ItemUpdate struct {
	IsSold       *bool
	EndTime      *time.Time
	ClearEndTime bool
}

// ItemView is an item together with its derived auction state
type ItemView struct {
	Item
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	BidCount      int             `json:"bidCount"`
	HighestBidder *Bidder         `json:"highestBidder"`
	Bids          []Bid           `json:"bids,omitempty"`
}

// Pagination describes a page of results
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	PerPage     int  `json:"perPage"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes page metadata for total results split by perPage
func NewPagination(page, perPage, total int) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		PerPage:     perPage,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
