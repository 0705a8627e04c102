package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

// Store is a concurrency-safe in-memory implementation of the ledger,
// user and catalog stores. Appends on one item are serialized by a
// per-item mutex; different items proceed in parallel.
type Store struct {
	mu        sync.RWMutex
	users     map[int]*models.User
	items     map[int]*models.Item
	bids      map[int][]models.Bid // key: itemID -> bids in insertion order
	locks     *bidding.KeyedMutex
	lastUser  int
	lastItem  int
	lastBid   int
	now       func() time.Time
}

var _ bidding.Ledger = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		users:     make(map[int]*models.User),
		items:     make(map[int]*models.Item),
		bids:      make(map[int][]models.Bid),
		locks:     bidding.NewKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return nil, fmt.Errorf("failed to create user: %w", biddingerrors.ErrUserExists)
		}
	}
	s.lastUser++
	user := &models.User{
		ID:           s.lastUser,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	cp := *user
	return &cp, nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", biddingerrors.ErrUserNotFound)
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", biddingerrors.ErrUserNotFound)
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user %d: %w", id, biddingerrors.ErrUserNotFound)
	}
	cp := *u
	return &cp, nil
}

// CreateItem inserts a catalog item
func (s *Store) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastItem++
	now := s.now()
	stored := *item
	stored.ID = s.lastItem
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.items[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

// UpdateItem changes the sold flag and/or end time. It takes the item's
// bid lock so no bid can land between the update and a concurrent check.
func (s *Store) UpdateItem(ctx context.Context, itemID int, upd models.ItemUpdate) (*models.Item, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("update item %d: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	if upd.IsSold != nil {
		item.IsSold = *upd.IsSold
	}
	if upd.ClearEndTime {
		item.EndTime = nil
	} else if upd.EndTime != nil {
		t := *upd.EndTime
		item.EndTime = &t
	}
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

// GetItem returns an item by id
func (s *Store) GetItem(ctx context.Context, itemID int) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("get item %d: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	cp := *item
	return &cp, nil
}

// ListItems returns catalog items with derived state
func (s *Store) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.ItemView, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var views []models.ItemView
	for _, item := range s.items {
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		if filter.Sold != nil && item.IsSold != *filter.Sold {
			continue
		}
		status := s.statusLocked(item)
		views = append(views, bidding.ItemViewOf(item, status))
	}

	desc := !strings.EqualFold(filter.SortOrder, "ASC")
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		var less, equal bool
		switch filter.SortBy {
		case "name":
			less, equal = a.Name < b.Name, a.Name == b.Name
		case "startingPrice":
			less, equal = a.StartingPrice.LessThan(b.StartingPrice), a.StartingPrice.Equal(b.StartingPrice)
		case "endTime":
			at, bt := endTimeKey(a.EndTime), endTimeKey(b.EndTime)
			less, equal = at.Before(bt), at.Equal(bt)
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})

	total := len(views)
	return paginate(views, filter.Limit, filter.Offset), total, nil
}

// ItemStatus derives the current state of an item from its bids
func (s *Store) ItemStatus(ctx context.Context, itemID int) (*models.ItemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item status %d: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	return s.statusLocked(item), nil
}

// AppendBid validates and records a bid while holding the item's lock
func (s *Store) AppendBid(ctx context.Context, nb models.NewBid, check bidding.CheckFunc) (*models.AcceptedBid, error) {
	unlock := s.locks.Lock(nb.ItemID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	item, ok := s.items[nb.ItemID]
	var snapshot *models.Item
	current := decimal.Zero
	if ok {
		cp := *item
		snapshot = &cp
		current = s.statusLocked(item).CurrentPrice
	}
	s.mu.RUnlock()

	if err := check(snapshot, current, nb.Amount); err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("append bid: %w", biddingerrors.ErrItemNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastBid++
	bidder := nb.Bidder
	bid := models.Bid{
		ID:        s.lastBid,
		ItemID:    nb.ItemID,
		UserID:    nb.Bidder.ID,
		Amount:    nb.Amount,
		User:      &bidder,
		CreatedAt: s.now(),
	}
	s.bids[nb.ItemID] = append(s.bids[nb.ItemID], bid)

	status := s.statusLocked(item)
	return &models.AcceptedBid{
		Bid:          bid,
		Item:         *snapshot,
		CurrentPrice: status.CurrentPrice,
		BidCount:     status.BidCount,
	}, nil
}

// ListItemBids returns an item's bids by amount desc, newest first on ties
func (s *Store) ListItemBids(ctx context.Context, itemID, limit, offset int) ([]models.Bid, int, error) {
	s.mu.RLock()
	bids := append([]models.Bid(nil), s.bids[itemID]...)
	s.mu.RUnlock()

	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Amount.Equal(bids[j].Amount) {
			return bids[i].Amount.GreaterThan(bids[j].Amount)
		}
		return newer(bids[i], bids[j])
	})
	return paginate(bids, limit, offset), len(bids), nil
}

// RecentItemBids returns the newest bids of an item
func (s *Store) RecentItemBids(ctx context.Context, itemID, limit int) ([]models.Bid, error) {
	s.mu.RLock()
	bids := append([]models.Bid(nil), s.bids[itemID]...)
	s.mu.RUnlock()

	sort.SliceStable(bids, func(i, j int) bool { return newer(bids[i], bids[j]) })
	return paginate(bids, limit, 0), nil
}

// ListUserBids returns a user's bids newest first with item summaries
func (s *Store) ListUserBids(ctx context.Context, userID, limit, offset int) ([]models.Bid, int, error) {
	s.mu.RLock()
	var bids []models.Bid
	for itemID, itemBids := range s.bids {
		item := s.items[itemID]
		for _, b := range itemBids {
			if b.UserID != userID {
				continue
			}
			if item != nil {
				b.Item = &models.ItemSummary{
					ID:            item.ID,
					Name:          item.Name,
					ImageURL:      item.ImageURL,
					IsSold:        item.IsSold,
					StartingPrice: item.StartingPrice,
				}
			}
			bids = append(bids, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(bids, func(i, j int) bool { return newer(bids[i], bids[j]) })
	return paginate(bids, limit, offset), len(bids), nil
}

// statusLocked computes derived state. Callers hold s.mu.
func (s *Store) statusLocked(item *models.Item) *models.ItemStatus {
	status := &models.ItemStatus{
		ItemID:       item.ID,
		CurrentPrice: item.StartingPrice,
		IsSold:       item.IsSold,
		EndTime:      item.EndTime,
	}
	bids := s.bids[item.ID]
	status.BidCount = len(bids)
	for i := range bids {
		b := bids[i]
		// strictly greater keeps the earlier-persisted bid on equal amounts
		if status.HighestBid == nil || b.Amount.GreaterThan(status.HighestBid.Amount) {
			status.HighestBid = &b
		}
	}
	if status.HighestBid != nil {
		status.CurrentPrice = status.HighestBid.Amount
		status.HighestBidder = status.HighestBid.User
	}
	return status
}

func newer(a, b models.Bid) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func endTimeKey(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func paginate[T any](all []T, limit, offset int) []T {
	if offset < 0 || offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
