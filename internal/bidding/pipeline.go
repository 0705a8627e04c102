package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
)

// DefaultBidTimeout bounds a single bid attempt against storage
const DefaultBidTimeout = 5 * time.Second

// maxAmount is the exclusive upper bound of NUMERIC(15,2)
var maxAmount = decimal.New(1, 13)

// Broadcaster delivers accepted-bid events to the item's room. It must not
// block on network I/O.
type Broadcaster interface {
	BroadcastBid(event models.BidEvent)
}

// EventSink receives accepted-bid events after the room broadcast.
// Sink failures never fail the bid.
type EventSink interface {
	PublishBid(ctx context.Context, event models.BidEvent) error
}

// Pipeline is the single acceptance path for bids from every transport
type Pipeline struct {
	ledger      Ledger
	validator   *Validator
	broadcaster Broadcaster
	sinks       []EventSink
	locks       *KeyedMutex
	timeout     time.Duration
	log         logrus.FieldLogger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithTimeout sets the storage deadline for one bid attempt
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSinks adds event sinks notified after each accepted bid
func WithSinks(sinks ...EventSink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// NewPipeline creates the acceptance pipeline
func NewPipeline(ledger Ledger, validator *Validator, broadcaster Broadcaster, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:      ledger,
		validator:   validator,
		broadcaster: broadcaster,
		locks:       NewKeyedMutex(),
		timeout:     DefaultBidTimeout,
		log:         log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlaceBid validates, persists and announces a bid. Rejections are returned
// as *biddingerrors.Rejection; storage failures wrap biddingerrors.ErrUnavailable.
// The attempt is not cancelled by ctx once submitted; it is bounded by the
// pipeline timeout instead.
func (p *Pipeline) PlaceBid(ctx context.Context, itemID int, bidder models.Bidder, amount decimal.Decimal) (*models.AcceptedBid, error) {
	if err := checkInput(itemID, bidder, amount); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	log := p.log.WithFields(logrus.Fields{
		"item_id": itemID,
		"user_id": bidder.ID,
		"amount":  amount.String(),
	})

	accepted, event, err := p.accept(ctx, models.NewBid{ItemID: itemID, Bidder: bidder, Amount: amount})
	if err != nil {
		if biddingerrors.IsRejection(err) {
			log.WithField("reason", err.Error()).Info("bid rejected")
			return nil, err
		}
		log.WithError(err).Error("bid failed")
		return nil, fmt.Errorf("%w: %v", biddingerrors.ErrUnavailable, err)
	}

	log.WithFields(logrus.Fields{
		"bid_id":    accepted.Bid.ID,
		"bid_count": accepted.BidCount,
	}).Info("bid accepted")

	for _, sink := range p.sinks {
		if err := sink.PublishBid(ctx, event); err != nil {
			log.WithError(err).Warn("failed to publish bid event")
		}
	}

	return accepted, nil
}

// accept runs the per-item critical section: fetch, validate, insert,
// recompute and hand the event to the broadcaster in ledger order.
func (p *Pipeline) accept(ctx context.Context, bid models.NewBid) (*models.AcceptedBid, models.BidEvent, error) {
	unlock := p.locks.Lock(bid.ItemID)
	defer unlock()

	accepted, err := p.ledger.AppendBid(ctx, bid, p.validator.Validate)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.BidEvent{}, fmt.Errorf("append bid: timed out after %s: %w", p.timeout, err)
		}
		return nil, models.BidEvent{}, err
	}

	if accepted.Bid.User == nil {
		user := bid.Bidder
		accepted.Bid.User = &user
	}
	event := NewBidEvent(accepted)
	p.broadcaster.BroadcastBid(event)
	return accepted, event, nil
}

// Snapshot reads the item's derived state under the item's lock and hands it
// to deliver before the lock is released. Anything deliver enqueues is
// therefore ordered consistently with the item's new-bid broadcasts.
// deliver is not called when the item does not exist.
func (p *Pipeline) Snapshot(ctx context.Context, itemID int, deliver func(*models.ItemStatus)) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	unlock := p.locks.Lock(itemID)
	defer unlock()

	status, err := p.ledger.ItemStatus(ctx, itemID)
	if err != nil {
		return err
	}
	deliver(status)
	return nil
}

// NewBidEvent packages an accepted bid for broadcast
func NewBidEvent(accepted *models.AcceptedBid) models.BidEvent {
	event := models.BidEvent{
		ID:           accepted.Bid.ID,
		ItemID:       accepted.Bid.ItemID,
		Amount:       accepted.Bid.Amount,
		CreatedAt:    accepted.Bid.CreatedAt,
		CurrentPrice: accepted.CurrentPrice,
		BidCount:     accepted.BidCount,
	}
	if accepted.Bid.User != nil {
		event.User = *accepted.Bid.User
	}
	return event
}

// checkInput rejects malformed attempts before any storage access
func checkInput(itemID int, bidder models.Bidder, amount decimal.Decimal) error {
	switch {
	case itemID <= 0:
		return fmt.Errorf("%w: item id is required", biddingerrors.ErrInvalidBid)
	case bidder.ID <= 0:
		return fmt.Errorf("%w: bidder is required", biddingerrors.ErrInvalidBid)
	case !amount.IsPositive():
		return fmt.Errorf("%w: amount must be a positive number", biddingerrors.ErrInvalidBid)
	case !amount.Equal(amount.Round(2)):
		return fmt.Errorf("%w: amount must have at most 2 decimal places", biddingerrors.ErrInvalidBid)
	case amount.GreaterThanOrEqual(maxAmount):
		return fmt.Errorf("%w: amount is too large", biddingerrors.ErrInvalidBid)
	}
	return nil
}
