package realtime

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xtrntr/auction/internal/models"
)

// Hub tracks live connections and the item rooms they have joined.
// Broadcasts only enqueue; a connection whose queue is full is closed.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[int]map[string]*Client
	joined  map[string]map[int]struct{}
	log     logrus.FieldLogger
}

// NewHub creates an empty hub
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[int]map[string]*Client),
		joined:  make(map[string]map[int]struct{}),
		log:     log,
	}
}

// Register adds a connection with no room memberships
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.joined[c.ID] = make(map[int]struct{})
}

// Join adds the connection to the item's room. It reports false when the
// connection is unknown. Joining twice is a no-op.
func (h *Hub) Join(connID string, itemID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	room, ok := h.rooms[itemID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[itemID] = room
	}
	room[connID] = c
	h.joined[connID][itemID] = struct{}{}
	return true
}

// Leave removes the connection from the item's room. It reports whether
// the connection was a member.
func (h *Hub) Leave(connID string, itemID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(connID, itemID)
}

func (h *Hub) leaveLocked(connID string, itemID int) bool {
	room, ok := h.rooms[itemID]
	if !ok {
		return false
	}
	if _, ok := room[connID]; !ok {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, itemID)
	}
	if rooms, ok := h.joined[connID]; ok {
		delete(rooms, itemID)
	}
	return true
}

// Disconnect removes the connection from every room and from the hub,
// returning the rooms it was in
func (h *Hub) Disconnect(connID string) []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []int
	for itemID := range h.joined[connID] {
		left = append(left, itemID)
	}
	sort.Ints(left)
	for _, itemID := range left {
		h.leaveLocked(connID, itemID)
	}
	delete(h.joined, connID)
	delete(h.clients, connID)
	return left
}

// MembersOf lists the connection ids in the item's room
func (h *Hub) MembersOf(itemID int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms[itemID]))
	for id := range h.rooms[itemID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomsOf lists the items the connection has joined
func (h *Hub) RoomsOf(connID string) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	items := make([]int, 0, len(h.joined[connID]))
	for itemID := range h.joined[connID] {
		items = append(items, itemID)
	}
	sort.Ints(items)
	return items
}

// Send enqueues msg for a single connection
func (h *Hub) Send(connID string, msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).WithField("event", msg.Event).Error("failed to encode message")
		return false
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.enqueue(data) {
		h.drop(c)
		return false
	}
	return true
}

// Broadcast enqueues msg for every member of the item's room except
// exceptConnID (empty for none)
func (h *Hub) Broadcast(itemID int, msg Message, exceptConnID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).WithField("event", msg.Event).Error("failed to encode message")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for id, c := range h.rooms[itemID] {
		if id == exceptConnID {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// BroadcastBid announces an accepted bid to everyone in the item's room,
// including the submitter
func (h *Hub) BroadcastBid(event models.BidEvent) {
	h.Broadcast(event.ItemID, Message{Event: EventNewBid, Data: event}, "")
}

// drop closes a connection that cannot keep up. Its read loop then exits
// and runs the normal disconnect path.
func (h *Hub) drop(c *Client) {
	h.log.WithFields(logrus.Fields{
		"conn_id": c.ID,
		"user_id": c.User.ID,
	}).Warn("dropping slow websocket client")
	c.Close()
}
