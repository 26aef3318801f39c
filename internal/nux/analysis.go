package nux

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ashureev/nux-coach/internal/domain"
)

// Conversion constants. The plan and the standalone figures use different
// rates and both are kept as they are.
const (
	RevenuePerConversion  = 3500
	PlanRateAutomated     = 0.15
	PlanRateManual        = 0.10
	StandaloneRate        = 0.12
	successLabelAutomated = "15-20%"
	successLabelManual    = "8-12%"
)

// Analysis is the deterministic lead potential estimate.
type Analysis struct {
	TotalContacts        int64   `json:"totalContacts"`
	ConversionRate       float64 `json:"conversionRate"`
	PotentialConversions int64   `json:"potentialConversions"`
	RevenueEstimate      int64   `json:"revenueEstimate"`
	SuccessRate          string  `json:"successRate,omitempty"`
}

// PlanAnalysis computes the figures quoted in the reactivation plan.
func PlanAnalysis(p domain.UserProfile) Analysis {
	rate := PlanRateManual
	if p.Automated() {
		rate = PlanRateAutomated
	}
	return analyze(int64(p.OldLeads()), int64(p.NewLeads()), rate)
}

// StandaloneAnalysis computes the figures of the analysis panel.
func StandaloneAnalysis(oldLeads, newLeads int64, automated bool) Analysis {
	a := analyze(oldLeads, newLeads, StandaloneRate)
	a.SuccessRate = successLabelManual
	if automated {
		a.SuccessRate = successLabelAutomated
	}
	return a
}

func analyze(oldLeads, newLeads int64, rate float64) Analysis {
	total := addClamped(oldLeads, newLeads)
	conversions := int64(math.Round(float64(total) * rate))
	revenue := int64(math.MaxInt64)
	if conversions <= math.MaxInt64/RevenuePerConversion {
		revenue = conversions * RevenuePerConversion
	}
	return Analysis{
		TotalContacts:        total,
		ConversionRate:       rate,
		PotentialConversions: conversions,
		RevenueEstimate:      revenue,
	}
}

// addClamped adds two non-negative counts, stopping at math.MaxInt64.
func addClamped(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

var german = message.NewPrinter(language.German)

// FormatNumber groups thousands the German way: 122500 becomes "122.500".
func FormatNumber(n int64) string {
	return german.Sprintf("%d", n)
}
