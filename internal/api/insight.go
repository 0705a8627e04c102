package api

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type insightRequest struct {
	ItemID     int              `json:"itemId"`
	UserBudget *decimal.Decimal `json:"userBudget"`
}

func (h *Handler) insightRequest(w http.ResponseWriter, r *http.Request) (*insightRequest, bool) {
	if h.Insight == nil {
		fail(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return nil, false
	}
	var req insightRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if req.ItemID <= 0 {
		fail(w, http.StatusBadRequest, "Item ID is required")
		return nil, false
	}
	return &req, true
}

// WhyWorthIt returns an appraisal of the item
func (h *Handler) WhyWorthIt(w http.ResponseWriter, r *http.Request) {
	req, ok := h.insightRequest(w, r)
	if !ok {
		return
	}
	result, err := h.Insight.WhyWorthIt(r.Context(), req.ItemID)
	if err != nil {
		h.writeError(w, r, err, "Failed to generate analysis")
		return
	}
	respond(w, http.StatusOK, "AI analysis completed", result)
}

// PricePrediction returns the oracle's price estimates, or an
// unavailable result when it gave none
func (h *Handler) PricePrediction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.insightRequest(w, r)
	if !ok {
		return
	}
	result, err := h.Insight.PricePrediction(r.Context(), req.ItemID)
	if err != nil {
		h.writeError(w, r, err, "Failed to generate price prediction")
		return
	}
	respond(w, http.StatusOK, "Price prediction completed", result)
}

// BiddingStrategy recommends an approach within the caller's budget
func (h *Handler) BiddingStrategy(w http.ResponseWriter, r *http.Request) {
	req, ok := h.insightRequest(w, r)
	if !ok {
		return
	}
	if req.UserBudget == nil {
		fail(w, http.StatusBadRequest, "Item ID and budget are required")
		return
	}
	result, err := h.Insight.BiddingStrategy(r.Context(), req.ItemID, *req.UserBudget)
	if err != nil {
		h.writeError(w, r, err, "Failed to generate bidding strategy")
		return
	}
	respond(w, http.StatusOK, "Bidding strategy generated", result)
}
