package bidding

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

// Validator decides whether a proposed bid may be accepted against an
// item's current state. It has no side effects.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator that evaluates end times against now.
// A nil now uses time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate checks, in order: existence, sold flag, end time, amount.
// The first failing check wins and is returned as a *biddingerrors.Rejection.
func (v *Validator) Validate(item *models.Item, currentPrice, amount decimal.Decimal) error {
	if item == nil {
		return biddingerrors.Reject(biddingerrors.ErrItemNotFound, currentPrice)
	}
	if item.IsSold {
		return biddingerrors.Reject(biddingerrors.ErrAlreadySold, currentPrice)
	}
	if item.Ended(v.now()) {
		return biddingerrors.Reject(biddingerrors.ErrAuctionEnded, currentPrice)
	}
	if amount.LessThanOrEqual(currentPrice) {
		return biddingerrors.Reject(biddingerrors.ErrBidTooLow, currentPrice)
	}
	return nil
}
