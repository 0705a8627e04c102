package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/models"
	"golang.org/x/time/rate"
)

// Authenticator resolves a bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Bidding is the acceptance path used by place-bid and join-item
type Bidding interface {
	PlaceBid(ctx context.Context, itemID int, bidder models.Bidder, amount decimal.Decimal) (*models.AcceptedBid, error)
	Snapshot(ctx context.Context, itemID int, deliver func(*models.ItemStatus)) error
}

// History serves get-bid-history
type History interface {
	RecentBids(ctx context.Context, itemID, limit int) ([]models.Bid, error)
}

// Options tunes per-connection limits
type Options struct {
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int

	// AllowedOrigins is checked against the Origin header. "*" allows any.
	AllowedOrigins []string
}

// Server accepts authenticated websocket connections on a single endpoint
// and routes their events
type Server struct {
	hub      *Hub
	auth     Authenticator
	bids     Bidding
	history  History
	opts     Options
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewServer creates the websocket server
func NewServer(hub *Hub, auth Authenticator, bids Bidding, history History, opts Options, log logrus.FieldLogger) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	s := &Server{
		hub:     hub,
		auth:    auth,
		bids:    bids,
		history: history,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return len(s.opts.AllowedOrigins) == 0
}

// ServeHTTP authenticates the handshake, upgrades the connection and runs
// its read loop until the peer goes away
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)
	if token == "" {
		unauthorized(w, "Authentication required")
		return
	}
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		s.log.WithError(err).Debug("websocket handshake rejected")
		unauthorized(w, "Invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	c := newClient(uuid.NewString(), user.Bidder(), conn, s.opts.SendBuffer)
	s.hub.Register(c)
	log := s.log.WithFields(logrus.Fields{"conn_id": c.ID, "user_id": user.ID})
	log.Info("websocket connected")

	go c.writePump()
	s.readLoop(r.Context(), c, log)

	for _, itemID := range s.hub.Disconnect(c.ID) {
		s.hub.Broadcast(itemID, Message{Event: EventUserLeft, Data: s.presence(itemID, c)}, "")
	}
	c.Close()
	log.Info("websocket disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *Client, log logrus.FieldLogger) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		if !limiter.Allow() {
			s.sendError(c, "Too many messages, slow down")
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			s.sendError(c, "Invalid message format")
			continue
		}
		s.dispatch(ctx, c, env, log)
	}
}

func (s *Server) dispatch(ctx context.Context, c *Client, env Envelope, log logrus.FieldLogger) {
	switch env.Event {
	case EventJoinItem:
		var req itemRequest
		if err := decode(env.Data, &req); err != nil || req.ItemID <= 0 {
			s.sendError(c, "Item ID is required")
			return
		}
		s.joinItem(ctx, c, req.ItemID, log)

	case EventLeaveItem:
		var req itemRequest
		if err := decode(env.Data, &req); err != nil || req.ItemID <= 0 {
			s.sendError(c, "Item ID is required")
			return
		}
		if s.hub.Leave(c.ID, req.ItemID) {
			s.hub.Broadcast(req.ItemID, Message{Event: EventUserLeft, Data: s.presence(req.ItemID, c)}, "")
		}

	case EventPlaceBid:
		var req placeBidRequest
		if err := decode(env.Data, &req); err != nil || req.ItemID <= 0 || req.Amount.IsZero() {
			s.hub.Send(c.ID, Message{Event: EventBidError, Data: ErrorPayload{Message: "Item ID and amount are required"}})
			return
		}
		s.placeBid(ctx, c, req)

	case EventGetBidHistory:
		var req historyRequest
		if err := decode(env.Data, &req); err != nil || req.ItemID <= 0 {
			s.sendError(c, "Item ID is required")
			return
		}
		s.bidHistory(ctx, c, req, log)

	default:
		s.sendError(c, "Unknown event: "+env.Event)
	}
}

// joinItem subscribes c to the room and sends the item's state. Both happen
// under the item's bid lock, so c sees every bid after the snapshot exactly
// once.
func (s *Server) joinItem(ctx context.Context, c *Client, itemID int, log logrus.FieldLogger) {
	err := s.bids.Snapshot(ctx, itemID, func(status *models.ItemStatus) {
		s.hub.Join(c.ID, itemID)
		s.hub.Send(c.ID, Message{Event: EventItemStatus, Data: statusPayload(status)})
	})
	if err != nil {
		if errors.Is(err, biddingerrors.ErrItemNotFound) {
			s.sendError(c, "Item not found")
			return
		}
		log.WithError(err).WithField("item_id", itemID).Error("failed to join item")
		s.sendError(c, "Failed to join item")
		return
	}
	s.hub.Broadcast(itemID, Message{Event: EventUserJoined, Data: s.presence(itemID, c)}, c.ID)
}

func (s *Server) placeBid(ctx context.Context, c *Client, req placeBidRequest) {
	accepted, err := s.bids.PlaceBid(ctx, req.ItemID, c.User, req.Amount)
	if err != nil {
		s.hub.Send(c.ID, Message{Event: EventBidError, Data: ErrorPayload{Message: biddingerrors.Message(err)}})
		return
	}
	// new-bid already went to the whole room, this connection included
	s.hub.Send(c.ID, Message{Event: EventBidSuccess, Data: BidSuccessPayload{
		Message: "Bid placed successfully",
		Bid:     bidding.NewBidEvent(accepted),
	}})
}

func (s *Server) bidHistory(ctx context.Context, c *Client, req historyRequest, log logrus.FieldLogger) {
	bids, err := s.history.RecentBids(ctx, req.ItemID, req.Limit)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrItemNotFound) {
			s.sendError(c, "Item not found")
			return
		}
		log.WithError(err).WithField("item_id", req.ItemID).Error("failed to load bid history")
		s.sendError(c, "Failed to get bid history")
		return
	}
	entries := make([]HistoryEntry, 0, len(bids))
	for _, b := range bids {
		entries = append(entries, HistoryEntry{ID: b.ID, Amount: b.Amount, User: b.User, CreatedAt: b.CreatedAt})
	}
	s.hub.Send(c.ID, Message{Event: EventBidHistory, Data: HistoryPayload{ItemID: req.ItemID, Bids: entries}})
}

func (s *Server) presence(itemID int, c *Client) PresencePayload {
	return PresencePayload{ItemID: itemID, User: c.User, Timestamp: s.now().UTC()}
}

func (s *Server) sendError(c *Client, message string) {
	s.hub.Send(c.ID, Message{Event: EventError, Data: ErrorPayload{Message: message}})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, v)
}

// handshakeToken reads the token from the query string or the
// Authorization header
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
