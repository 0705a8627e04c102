package bidding

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"Defaults", 0, 0, 1, DefaultPageSize},
		{"Negative", -3, -1, 1, DefaultPageSize},
		{"Explicit", 4, 15, 4, 15},
		{"LimitCapped", 2, 1000, 2, MaxPageSize},
		{"HugePage", math.MaxInt, 20, math.MaxInt / MaxPageSize, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit, DefaultPageSize, MaxPageSize)
			check.Equal(t, tt.wantPage, page)
			check.Equal(t, tt.wantLimit, limit)
			check.True(t, (page-1)*limit >= 0)
		})
	}
}
