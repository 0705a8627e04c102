package bidding

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)
	v := NewValidator(func() time.Time { return now })
	price := decimal.NewFromInt(100)

	cases := []struct {
		name   string
		item   *models.Item
		amount string
		want   error
	}{
		{"missing item", nil, "500", biddingerrors.ErrItemNotFound},
		{"sold", &models.Item{IsSold: true}, "500", biddingerrors.ErrAlreadySold},
		{"sold wins over ended", &models.Item{IsSold: true, EndTime: &past}, "500", biddingerrors.ErrAlreadySold},
		{"ended", &models.Item{EndTime: &past}, "1000000", biddingerrors.ErrAuctionEnded},
		{"ended wins over too low", &models.Item{EndTime: &past}, "1", biddingerrors.ErrAuctionEnded},
		{"equal to current", &models.Item{}, "100", biddingerrors.ErrBidTooLow},
		{"below current", &models.Item{EndTime: &future}, "99.99", biddingerrors.ErrBidTooLow},
		{"one cent above", &models.Item{EndTime: &future}, "100.01", nil},
		{"no end time", &models.Item{}, "150", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.item, price, decimal.RequireFromString(tc.amount))
			if tc.want == nil {
				check.NoError(t, err)
				return
			}
			check.True(t, errors.Is(err, tc.want))

			var rej *biddingerrors.Rejection
			check.True(t, errors.As(err, &rej))
			check.Equal(t, "100", rej.CurrentPrice.String())
		})
	}
}

func TestValidator_EndTimeIsExclusive(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &models.Item{EndTime: &end}

	atEnd := NewValidator(func() time.Time { return end })
	check.NoError(t, atEnd.Validate(item, decimal.Zero, decimal.NewFromInt(1)))

	after := NewValidator(func() time.Time { return end.Add(time.Nanosecond) })
	check.True(t, errors.Is(after.Validate(item, decimal.Zero, decimal.NewFromInt(1)), biddingerrors.ErrAuctionEnded))
}

func TestRejection_Message(t *testing.T) {
	err := biddingerrors.Reject(biddingerrors.ErrBidTooLow, decimal.RequireFromString("1100000"))
	check.Equal(t, "Bid amount must be higher than current price: 1100000.00", err.Error())
	check.Equal(t, err.Error(), biddingerrors.Message(err))
	check.Equal(t, "Failed to place bid. Please try again.", biddingerrors.Message(biddingerrors.ErrUnavailable))
}
