package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Storage-level errors
var (
	ErrItemNotFound = errors.New("item not found")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already registered")
	ErrUnavailable  = errors.New("storage unavailable")
)

// Bid rejection reasons
var (
	ErrInvalidBid   = errors.New("invalid bid")
	ErrAlreadySold  = errors.New("item is already sold")
	ErrAuctionEnded = errors.New("auction has ended")
	ErrBidTooLow    = errors.New("bid amount too low")
)

// Authentication errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Rejection is a terminal validator decision. Reason is one of the
// rejection sentinels; CurrentPrice is the price the bid was checked against.
type Rejection struct {
	Reason       error
	CurrentPrice decimal.Decimal
}

// Reject builds a rejection for reason at the given current price
func Reject(reason error, currentPrice decimal.Decimal) *Rejection {
	return &Rejection{Reason: reason, CurrentPrice: currentPrice}
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ErrBidTooLow:
		return fmt.Sprintf("Bid amount must be higher than current price: %s", r.CurrentPrice.StringFixed(2))
	case ErrAlreadySold:
		return "Item is already sold"
	case ErrAuctionEnded:
		return "Auction has ended"
	case ErrItemNotFound:
		return "Item not found"
	default:
		return r.Reason.Error()
	}
}

func (r *Rejection) Unwrap() error {
	return r.Reason
}

// Message renders a bid failure for the submitting client. Infrastructure
// failures get a generic message.
func Message(err error) string {
	var rej *Rejection
	switch {
	case errors.As(err, &rej):
		return rej.Error()
	case errors.Is(err, ErrInvalidBid):
		return err.Error()
	default:
		return "Failed to place bid. Please try again."
	}
}

// IsRejection reports whether err is a validator rejection (as opposed to an
// infrastructure failure)
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}
