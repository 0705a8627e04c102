package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/models"
)

const defaultItemsPerPage = 10

var itemSortKeys = map[string]bool{
	"createdAt":     true,
	"name":          true,
	"startingPrice": true,
	"endTime":       true,
}

// ListItems returns catalog items with their current price
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := bidding.NormalizePage(queryInt(r, "page"), queryInt(r, "limit"), defaultItemsPerPage, bidding.MaxPageSize)

	filter := models.ItemFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sortBy"),
		SortOrder: strings.ToUpper(q.Get("sortOrder")),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if !itemSortKeys[filter.SortBy] {
		filter.SortBy = "createdAt"
	}
	if filter.SortOrder != "ASC" {
		filter.SortOrder = "DESC"
	}
	if sold := q.Get("sold"); sold != "" {
		v := sold == "true"
		filter.Sold = &v
	}

	items, total, err := h.Catalog.ListItems(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve items")
		return
	}
	if items == nil {
		items = []models.ItemView{}
	}

	respond(w, http.StatusOK, "Items retrieved successfully", map[string]any{
		"items":      items,
		"pagination": pageMeta(models.NewPagination(page, limit, total), "totalItems", "itemsPerPage"),
	})
}

// GetItem returns one item with its full bid history
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		fail(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	view, err := h.Reads.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve item")
		return
	}
	if view.Bids == nil {
		view.Bids = []models.Bid{}
	}
	respond(w, http.StatusOK, "Item retrieved successfully", map[string]any{"item": view})
}

// CreateItem adds an item to the catalog
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string           `json:"name"`
		Description   string           `json:"description"`
		StartingPrice *decimal.Decimal `json:"startingPrice"`
		ImageURL      *string          `json:"imageUrl"`
		EndTime       *time.Time       `json:"endTime"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "" || req.StartingPrice == nil:
		fail(w, http.StatusBadRequest, "Name and starting price are required")
		return
	case len(req.Name) < 3 || len(req.Name) > 255:
		fail(w, http.StatusBadRequest, "Name must be between 3 and 255 characters")
		return
	case req.StartingPrice.IsNegative():
		fail(w, http.StatusBadRequest, "Starting price must be greater than or equal to 0")
		return
	case !req.StartingPrice.Equal(req.StartingPrice.Round(2)):
		fail(w, http.StatusBadRequest, "Starting price must have at most 2 decimal places")
		return
	case req.EndTime != nil && !req.EndTime.After(h.now()):
		fail(w, http.StatusBadRequest, "End time must be in the future")
		return
	}
	if req.ImageURL != nil && strings.TrimSpace(*req.ImageURL) == "" {
		req.ImageURL = nil
	}

	item, err := h.Catalog.CreateItem(r.Context(), &models.Item{
		Name:          req.Name,
		Description:   req.Description,
		StartingPrice: *req.StartingPrice,
		ImageURL:      req.ImageURL,
		EndTime:       req.EndTime,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to create item")
		return
	}
	respond(w, http.StatusCreated, "Item created successfully", map[string]any{"item": item})
}

// UpdateItem marks an item sold or changes its end time. An explicit
// null endTime removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		fail(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	var req struct {
		IsSold  *bool           `json:"isSold"`
		EndTime json.RawMessage `json:"endTime"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := models.ItemUpdate{IsSold: req.IsSold}
	switch {
	case len(req.EndTime) == 0:
	case bytes.Equal(req.EndTime, []byte("null")):
		upd.ClearEndTime = true
	default:
		var t time.Time
		if err := json.Unmarshal(req.EndTime, &t); err != nil {
			fail(w, http.StatusBadRequest, "End time must be an RFC 3339 timestamp")
			return
		}
		upd.EndTime = &t
	}

	item, err := h.Catalog.UpdateItem(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err, "Failed to update item")
		return
	}
	respond(w, http.StatusOK, "Item updated successfully", map[string]any{"item": item})
}
