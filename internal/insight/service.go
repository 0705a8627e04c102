// Package insight produces advisory text about auction items from an
// external oracle. It reads item state through the read path and never
// takes part in accepting bids.
//
// Oracle output that cannot be parsed, or a failed oracle call, yields a
// result with Available set to false. Numeric predictions are only ever
// the oracle's own numbers.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xtrntr/auction/internal/models"
)

// Reason reported when the oracle gave nothing usable
const (
	ReasonAnalysisUnavailable   = "analysis unavailable"
	ReasonPredictionUnavailable = "prediction unavailable"
	ReasonStrategyUnavailable   = "strategy unavailable"
)

// ErrInvalidBudget rejects a strategy request without a positive budget
var ErrInvalidBudget = errors.New("budget must be a positive amount")

// ItemSource reads an item together with its derived state
type ItemSource interface {
	Highest(ctx context.Context, itemID int) (*models.Item, *models.ItemStatus, error)
}

// Service builds prompts from item snapshots and interprets oracle replies
type Service struct {
	oracle  Oracle
	items   ItemSource
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates the insight service. timeout bounds each oracle call.
func NewService(oracle Oracle, items ItemSource, timeout time.Duration, log logrus.FieldLogger) *Service {
	return &Service{
		oracle:  oracle,
		items:   items,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

type snapshot struct {
	item   *models.Item
	status *models.ItemStatus
}

func (s *Service) snapshot(ctx context.Context, itemID int) (*snapshot, error) {
	item, status, err := s.items.Highest(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &snapshot{item: item, status: status}, nil
}

// ask calls the oracle with its own deadline. Errors are logged and
// reported as an empty reply.
func (s *Service) ask(ctx context.Context, kind string, itemID int, prompt string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "item_id": itemID}).Warn("oracle call failed")
		return "", false
	}
	return reply, strings.TrimSpace(reply) != ""
}

// Analysis explains why an item may be worth bidding on
type Analysis struct {
	ItemID      int       `json:"itemId"`
	Available   bool      `json:"available"`
	Reason      string    `json:"reason,omitempty"`
	Analysis    string    `json:"analysis,omitempty"`
	Confidence  int       `json:"confidence,omitempty"`
	Factors     []string  `json:"factors"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// WhyWorthIt asks the oracle for an appraisal of the item
func (s *Service) WhyWorthIt(ctx context.Context, itemID int) (*Analysis, error) {
	snap, err := s.snapshot(ctx, itemID)
	if err != nil {
		return nil, err
	}
	result := &Analysis{
		ItemID:      itemID,
		Factors:     []string{},
		GeneratedAt: s.now().UTC(),
	}

	reply, ok := s.ask(ctx, "why-worth-it", itemID, whyWorthItPrompt(snap, s.now()))
	if !ok {
		result.Reason = ReasonAnalysisUnavailable
		return result, nil
	}

	var wire struct {
		Analysis string   `json:"analysis"`
		Factors  []string `json:"factors"`
	}
	if err := decodeReply(reply, &wire); err != nil || strings.TrimSpace(wire.Analysis) == "" {
		// free text is still a usable appraisal
		wire.Analysis = strings.TrimSpace(reply)
		wire.Factors = nil
	}
	result.Available = true
	result.Confidence = analysisConfidence(snap, s.now())
	result.Analysis = strings.TrimSpace(wire.Analysis)
	result.Factors = wire.Factors
	if len(result.Factors) == 0 {
		result.Factors = keyFactors(result.Analysis)
	}
	return result, nil
}

// Predictions are the oracle's price estimates
type Predictions struct {
	NextHour            decimal.Decimal `json:"nextHour"`
	Next24Hours         decimal.Decimal `json:"next24Hours"`
	EstimatedFinalPrice decimal.Decimal `json:"estimatedFinalPrice"`
}

// Prediction is the reply to a price prediction request
type Prediction struct {
	ItemID       int             `json:"itemId"`
	Available    bool            `json:"available"`
	Reason       string          `json:"reason,omitempty"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Predictions  *Predictions    `json:"predictions"`
	Analysis     string          `json:"analysis,omitempty"`
	Confidence   int             `json:"confidence,omitempty"`
	Disclaimer   string          `json:"disclaimer"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// PricePrediction asks the oracle for short and long term price estimates.
// Predictions is nil unless the oracle returned three positive amounts.
func (s *Service) PricePrediction(ctx context.Context, itemID int) (*Prediction, error) {
	snap, err := s.snapshot(ctx, itemID)
	if err != nil {
		return nil, err
	}
	result := &Prediction{
		ItemID:       itemID,
		CurrentPrice: snap.status.CurrentPrice,
		Disclaimer:   "This is an AI prediction and should not be considered as financial advice.",
		GeneratedAt:  s.now().UTC(),
	}

	reply, ok := s.ask(ctx, "price-prediction", itemID, pricePredictionPrompt(snap, s.now()))
	if !ok {
		result.Reason = ReasonPredictionUnavailable
		return result, nil
	}

	var wire struct {
		Predictions
		Analysis string `json:"analysis"`
	}
	if err := decodeReply(reply, &wire); err != nil || !wire.valid() {
		s.log.WithField("item_id", itemID).Warn("oracle prediction could not be parsed")
		result.Reason = ReasonPredictionUnavailable
		return result, nil
	}
	predictions := wire.Predictions
	result.Available = true
	result.Confidence = predictionConfidence(snap, s.now())
	result.Predictions = &predictions
	result.Analysis = strings.TrimSpace(wire.Analysis)
	return result, nil
}

func (p Predictions) valid() bool {
	return p.NextHour.IsPositive() && p.Next24Hours.IsPositive() && p.EstimatedFinalPrice.IsPositive()
}

// Plan is the oracle's recommended bidding approach
type Plan struct {
	Name      string `json:"name"`
	Timing    string `json:"timing"`
	Increment string `json:"increment"`
	RiskLevel string `json:"riskLevel"`
}

// BudgetAnalysis relates the caller's budget to the current price
type BudgetAnalysis struct {
	Budget            decimal.Decimal `json:"budget"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	BudgetMultiplier  string          `json:"budgetMultiplier"`
	BudgetUtilization string          `json:"budgetUtilization"`
	RiskLevel         string          `json:"riskLevel"`
}

// Strategy is the reply to a bidding strategy request
type Strategy struct {
	ItemID         int            `json:"itemId"`
	Available      bool           `json:"available"`
	Reason         string         `json:"reason,omitempty"`
	Strategy       *Plan          `json:"strategy"`
	Analysis       string         `json:"analysis,omitempty"`
	BudgetAnalysis BudgetAnalysis `json:"budgetAnalysis"`
	Tips           []string       `json:"tips"`
	Disclaimer     string         `json:"disclaimer"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// BiddingStrategy asks the oracle for a plan that fits budget. The budget
// analysis and tips are computed locally and are always present.
func (s *Service) BiddingStrategy(ctx context.Context, itemID int, budget decimal.Decimal) (*Strategy, error) {
	if !budget.IsPositive() {
		return nil, ErrInvalidBudget
	}
	snap, err := s.snapshot(ctx, itemID)
	if err != nil {
		return nil, err
	}
	result := &Strategy{
		ItemID:         itemID,
		BudgetAnalysis: budgetAnalysis(budget, snap.status.CurrentPrice),
		Tips:           strategyTips(snap, budget, s.now()),
		Disclaimer:     "This is an AI-generated strategy and should be used as guidance only.",
		GeneratedAt:    s.now().UTC(),
	}

	reply, ok := s.ask(ctx, "bidding-strategy", itemID, biddingStrategyPrompt(snap, budget, s.now()))
	if !ok {
		result.Reason = ReasonStrategyUnavailable
		return result, nil
	}

	var wire struct {
		Plan
		Analysis string `json:"analysis"`
	}
	if err := decodeReply(reply, &wire); err != nil || strings.TrimSpace(wire.Name) == "" {
		result.Reason = ReasonStrategyUnavailable
		return result, nil
	}
	plan := wire.Plan
	if plan.RiskLevel == "" {
		plan.RiskLevel = result.BudgetAnalysis.RiskLevel
	}
	result.Available = true
	result.Strategy = &plan
	result.Analysis = strings.TrimSpace(wire.Analysis)
	return result, nil
}

// decodeReply extracts the first JSON object from reply, tolerating code
// fences and surrounding prose
func decodeReply(reply string, v any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in oracle reply")
	}
	return json.Unmarshal([]byte(reply[start:end+1]), v)
}
