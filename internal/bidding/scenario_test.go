package bidding_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/logger"
	"github.com/xtrntr/auction/internal/memdb"
	"github.com/xtrntr/auction/internal/models"
)

type eventLog struct {
	mu     sync.Mutex
	events []models.BidEvent
}

func (l *eventLog) BroadcastBid(event models.BidEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func setup(t *testing.T) (*memdb.Store, *bidding.Pipeline, *bidding.Reconciler, *eventLog) {
	t.Helper()
	store := memdb.New()
	events := &eventLog{}
	pipeline := bidding.NewPipeline(store, bidding.NewValidator(time.Now), events, logger.Discard())
	return store, pipeline, bidding.NewReconciler(store), events
}

func createItem(t *testing.T, store *memdb.Store, item models.Item) *models.Item {
	t.Helper()
	item.Name = "Test Lot"
	created, err := store.CreateItem(context.Background(), &item)
	require.NoError(t, err)
	return created
}

func createBidders(t *testing.T, store *memdb.Store, n int) []models.Bidder {
	t.Helper()
	bidders := make([]models.Bidder, n)
	for i := range bidders {
		name := string(rune('a'+i)) + "_bidder"
		u, err := store.CreateUser(context.Background(), name, name+"@example.com", "x")
		require.NoError(t, err)
		bidders[i] = u.Bidder()
	}
	return bidders
}

func TestScenario_MillionStart(t *testing.T) {
	ctx := context.Background()
	store, pipeline, reads, events := setup(t)
	item := createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(1000000)})
	users := createBidders(t, store, 3)

	_, err := pipeline.PlaceBid(ctx, item.ID, users[0], decimal.NewFromInt(1000000))
	assert.ErrorIs(t, err, biddingerrors.ErrBidTooLow)

	accepted, err := pipeline.PlaceBid(ctx, item.ID, users[0], decimal.NewFromInt(1100000))
	require.NoError(t, err)
	assert.Equal(t, "1100000", accepted.CurrentPrice.String())
	assert.Equal(t, 1, accepted.BidCount)

	_, err = pipeline.PlaceBid(ctx, item.ID, users[1], decimal.NewFromInt(1050000))
	var rej *biddingerrors.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, biddingerrors.ErrBidTooLow, rej.Reason)
	assert.Equal(t, "1100000", rej.CurrentPrice.String())

	accepted, err = pipeline.PlaceBid(ctx, item.ID, users[2], decimal.NewFromInt(1200000))
	require.NoError(t, err)
	assert.Equal(t, 2, accepted.BidCount)

	status, err := reads.Status(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "1200000", status.CurrentPrice.String())
	assert.Equal(t, 2, status.BidCount)
	require.NotNil(t, status.HighestBidder)
	assert.Equal(t, users[2], *status.HighestBidder)

	// what readers see is what was last broadcast
	require.Len(t, events.events, 2)
	last := events.events[1]
	assert.True(t, last.CurrentPrice.Equal(status.CurrentPrice))
	assert.Equal(t, last.BidCount, status.BidCount)
	assert.Equal(t, last.User, *status.HighestBidder)
}

func TestScenario_TerminalStates(t *testing.T) {
	ctx := context.Background()
	store, pipeline, _, events := setup(t)
	users := createBidders(t, store, 1)
	past := time.Now().Add(-time.Hour)
	ended := createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(10), EndTime: &past})
	open := createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(10)})

	_, err := pipeline.PlaceBid(ctx, ended.ID, users[0], decimal.NewFromInt(1000000000))
	assert.ErrorIs(t, err, biddingerrors.ErrAuctionEnded)

	_, err = pipeline.PlaceBid(ctx, open.ID, users[0], decimal.NewFromInt(20))
	require.NoError(t, err)

	sold := true
	_, err = store.UpdateItem(ctx, open.ID, models.ItemUpdate{IsSold: &sold})
	require.NoError(t, err)

	for _, amount := range []int64{21, 1000, 1000000} {
		_, err = pipeline.PlaceBid(ctx, open.ID, users[0], decimal.NewFromInt(amount))
		assert.ErrorIs(t, err, biddingerrors.ErrAlreadySold)
	}

	_, err = pipeline.PlaceBid(ctx, 4242, users[0], decimal.NewFromInt(5))
	assert.ErrorIs(t, err, biddingerrors.ErrItemNotFound)
	assert.Len(t, events.events, 1)
}

func TestPipeline_ConcurrentBidsNeverDoubleAccept(t *testing.T) {
	ctx := context.Background()
	store, pipeline, reads, events := setup(t)
	item := createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(100)})
	users := createBidders(t, store, 8)

	// every attempt offers one of a few amounts, so most collide
	const attempts = 200
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(101 + i%25))
			_, err := pipeline.PlaceBid(ctx, item.ID, users[i%len(users)], amount)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case !errors.Is(err, biddingerrors.ErrBidTooLow):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	status, err := reads.Status(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted, status.BidCount)
	assert.Equal(t, "125", status.CurrentPrice.String())

	// accepted amounts, in ledger order and in broadcast order, strictly increase
	bids, total, err := store.ListItemBids(ctx, item.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, accepted, total)
	byID := make(map[int]models.Bid, len(bids))
	for _, b := range bids {
		byID[b.ID] = b
	}

	require.Len(t, events.events, accepted)
	for i := 1; i < len(events.events); i++ {
		prev, cur := events.events[i-1], events.events[i]
		assert.True(t, cur.Amount.GreaterThan(prev.Amount), "broadcast %d not above %d", i, i-1)
		assert.Greater(t, cur.ID, prev.ID)
		assert.Equal(t, prev.BidCount+1, cur.BidCount)
		assert.True(t, byID[cur.ID].Amount.Equal(cur.Amount))
	}
}

func TestPipeline_ItemsProceedIndependently(t *testing.T) {
	ctx := context.Background()
	store, pipeline, reads, _ := setup(t)
	users := createBidders(t, store, 2)
	var items []*models.Item
	for i := 0; i < 5; i++ {
		items = append(items, createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(1)}))
	}

	var wg sync.WaitGroup
	for _, item := range items {
		for n := 2; n <= 21; n++ {
			wg.Add(1)
			go func(itemID, n int) {
				defer wg.Done()
				pipeline.PlaceBid(ctx, itemID, users[n%2], decimal.NewFromInt(int64(n)))
			}(item.ID, n)
		}
	}
	wg.Wait()

	for _, item := range items {
		status, err := reads.Status(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "21", status.CurrentPrice.String(), "item %d", item.ID)
	}
}

func TestReconciler_Pages(t *testing.T) {
	ctx := context.Background()
	store, pipeline, reads, _ := setup(t)
	item := createItem(t, store, models.Item{StartingPrice: decimal.NewFromInt(1)})
	users := createBidders(t, store, 2)
	for n := 2; n <= 6; n++ {
		_, err := pipeline.PlaceBid(ctx, item.ID, users[n%2], decimal.NewFromInt(int64(n)))
		require.NoError(t, err)
	}

	page, err := reads.ListBids(ctx, item.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, bidding.DefaultPageSize, page.Pagination.PerPage)
	require.Len(t, page.Bids, 5)
	assert.Equal(t, "6", page.Bids[0].Amount.String())

	page, err = reads.ListBids(ctx, item.ID, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, bidding.MaxPageSize, page.Pagination.PerPage)

	recent, err := reads.RecentBids(ctx, item.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "6", recent[0].Amount.String())
	assert.Equal(t, "5", recent[1].Amount.String())

	view, err := reads.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", view.CurrentPrice.String())
	assert.Len(t, view.Bids, 5)

	_, err = reads.RecentBids(ctx, 999, 10)
	assert.ErrorIs(t, err, biddingerrors.ErrItemNotFound)
}
