package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func hoursRemaining(snap *snapshot, now time.Time) (float64, bool) {
	if snap.item.EndTime == nil {
		return 0, false
	}
	h := snap.item.EndTime.Sub(now).Hours()
	if h < 0 {
		h = 0
	}
	return h, true
}

// analysisConfidence grows with bidding activity and nearness of the end
func analysisConfidence(snap *snapshot, now time.Time) int {
	c := 70 + min(snap.status.BidCount*3, 20)
	if !snap.item.IsSold {
		c += 5
	}
	if h, ok := hoursRemaining(snap, now); ok && h < 24 {
		c += 5
	}
	return min(c, 95)
}

func predictionConfidence(snap *snapshot, now time.Time) int {
	c := 60 + min(snap.status.BidCount*4, 25)
	if h, ok := hoursRemaining(snap, now); ok {
		switch {
		case h < 6:
			c += 10
		case h < 24:
			c += 5
		}
	}
	return min(c, 90)
}

var factorKeywords = []struct {
	words  []string
	factor string
}{
	{[]string{"rare", "rarity"}, "Rarity factor"},
	{[]string{"condition", "pristine"}, "Condition assessment"},
	{[]string{"market", "demand"}, "Market demand"},
	{[]string{"historical", "history"}, "Historical significance"},
	{[]string{"investment", "value"}, "Investment potential"},
	{[]string{"authentic", "provenance"}, "Authenticity"},
}

// keyFactors lists the appraisal themes mentioned in text
func keyFactors(text string) []string {
	text = strings.ToLower(text)
	factors := []string{}
	for _, k := range factorKeywords {
		for _, w := range k.words {
			if strings.Contains(text, w) {
				factors = append(factors, k.factor)
				break
			}
		}
	}
	return factors
}

func budgetRisk(budget, current decimal.Decimal) string {
	if !current.IsPositive() {
		return "Low"
	}
	ratio := budget.Div(current)
	switch {
	case ratio.LessThan(decimal.NewFromFloat(1.2)):
		return "High"
	case ratio.LessThan(decimal.NewFromInt(2)):
		return "Medium"
	default:
		return "Low"
	}
}

func budgetAnalysis(budget, current decimal.Decimal) BudgetAnalysis {
	ba := BudgetAnalysis{
		Budget:       budget,
		CurrentPrice: current,
		RiskLevel:    budgetRisk(budget, current),
	}
	if current.IsPositive() {
		ba.BudgetMultiplier = budget.Div(current).StringFixed(2)
	}
	utilization := decimal.NewFromInt(100)
	if budget.IsPositive() {
		utilization = decimal.Min(current.Div(budget).Mul(decimal.NewFromInt(100)), utilization)
	}
	ba.BudgetUtilization = utilization.StringFixed(1) + "%"
	return ba
}

func strategyTips(snap *snapshot, budget decimal.Decimal, now time.Time) []string {
	tips := []string{
		"Set a maximum bid limit and stick to it",
		"Watch other bidders' patterns to gauge competition",
		"Consider the item's market value beyond the auction itself",
	}
	if current := snap.status.CurrentPrice; current.IsPositive() {
		ratio := budget.Div(current)
		switch {
		case ratio.LessThan(decimal.NewFromFloat(1.5)):
			tips = append(tips, "Your budget is tight, so favour precise timing over early bidding")
		case ratio.GreaterThan(decimal.NewFromInt(3)):
			tips = append(tips, "You have budget headroom for early positioning")
		}
	}
	if h, ok := hoursRemaining(snap, now); ok && h < 6 {
		tips = append(tips, "The auction ends soon, expect more competition")
	}
	return tips
}

func describe(snap *snapshot, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Name: %s\n", snap.item.Name)
	fmt.Fprintf(&b, "- Description: %s\n", snap.item.Description)
	fmt.Fprintf(&b, "- Starting price: %s\n", snap.item.StartingPrice.StringFixed(2))
	fmt.Fprintf(&b, "- Current price: %s\n", snap.status.CurrentPrice.StringFixed(2))
	fmt.Fprintf(&b, "- Number of bids: %d\n", snap.status.BidCount)
	status := "ACTIVE"
	if snap.item.IsSold {
		status = "SOLD"
	}
	fmt.Fprintf(&b, "- Status: %s\n", status)
	fmt.Fprintf(&b, "- Listed for: %d hours\n", int(now.Sub(snap.item.CreatedAt).Hours()))
	if h, ok := hoursRemaining(snap, now); ok {
		fmt.Fprintf(&b, "- Time remaining: %.1f hours\n", h)
	}
	return b.String()
}

func whyWorthItPrompt(snap *snapshot, now time.Time) string {
	return "As an expert auctioneer and appraiser, explain why this auction item is worth bidding on.\n\n" +
		"Item:\n" + describe(snap, now) + "\n" +
		"Cover investment potential, rarity, historical significance, condition and market trends in at most 200 words.\n" +
		`Reply with a JSON object: {"analysis": string, "factors": [string]}`
}

func pricePredictionPrompt(snap *snapshot, now time.Time) string {
	return "As an auction analyst, predict the price trajectory of this auction item.\n\n" +
		"Item:\n" + describe(snap, now) + "\n" +
		"Estimate the price in the next hour, in the next 24 hours and the final closing price.\n" +
		`Reply with a JSON object: {"nextHour": number, "next24Hours": number, "estimatedFinalPrice": number, "analysis": string}`
}

func biddingStrategyPrompt(snap *snapshot, budget decimal.Decimal, now time.Time) string {
	return "As an auction strategist, recommend a bidding strategy for this item.\n\n" +
		"Item:\n" + describe(snap, now) +
		fmt.Sprintf("- Bidder budget: %s\n\n", budget.StringFixed(2)) +
		"Name the strategy and give timing, increment and risk advice that stays within budget.\n" +
		`Reply with a JSON object: {"name": string, "timing": string, "increment": string, "riskLevel": string, "analysis": string}`
}
