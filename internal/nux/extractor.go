// Package nux implements the conversation-state inference engine: profile
// extraction, mode classification, context building, response selection and
// the deterministic lead analysis.
//
// Every function in this package is pure and total over arbitrary text.
package nux

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/nux-coach/internal/domain"
)

// MaxLeadCount is the ceiling applied to numbers read from free text. Only
// digit runs that do not fit an int are clamped.
const MaxLeadCount = math.MaxInt

var digitRun = regexp.MustCompile(`\d+`)

// keywordRule fires its effect when the lower-cased message contains any keyword.
type keywordRule struct {
	keywords []string
	apply    func(p *domain.UserProfile)
}

// numberRule assigns the first number of a message to one profile field.
type numberRule struct {
	keywords []string
	assign   func(p *domain.UserProfile, n int)
}

// Number assignment: first matching rule wins.
var numberRules = []numberRule{
	{
		keywords: []string{"alte", "unbearbeitet"},
		assign: func(p *domain.UserProfile, n int) {
			p.OldLeadsCount = domain.Int(n)
			p.HasOldLeads = domain.Bool(n > 0)
		},
	},
	{
		keywords: []string{"neue", "monat"},
		assign:   func(p *domain.UserProfile, n int) { p.NewLeadsPerMonth = domain.Int(n) },
	},
	{
		keywords: []string{"stunden", "zeit"},
		assign:   func(p *domain.UserProfile, n int) { p.TimeAvailableDaily = domain.Int(n) },
	},
}

var experienceRules = []keywordRule{
	{
		keywords: []string{"neu im", "anfänger", "erste mal"},
		apply: func(p *domain.UserProfile) {
			p.IsBeginnerInSales = domain.Bool(true)
			p.HasExperience = domain.Bool(false)
		},
	},
	{
		keywords: []string{"erfahrung", "schon mal", "kenne mich aus"},
		apply: func(p *domain.UserProfile) {
			p.HasExperience = domain.Bool(true)
			p.IsBeginnerInSales = domain.Bool(false)
		},
	},
}

// leadSourceRules are evaluated independently; every match appends its label.
var leadSourceRules = []struct {
	keywords []string
	label    string
}{
	{[]string{"facebook", "fb"}, "Facebook Ads"},
	{[]string{"google"}, "Google Ads"},
	{[]string{"portal", "immoscout"}, "Immobilienportale"},
	{[]string{"empfehlung"}, "Empfehlungen"},
	{[]string{"kalt", "cold"}, "Kaltakquise"},
}

var automationRules = []keywordRule{
	{
		keywords: []string{"crm", "system", "automatisch"},
		apply: func(p *domain.UserProfile) {
			p.HasAutomation = domain.Bool(true)
			p.UsesCRM = domain.Bool(true)
		},
	},
	{
		keywords: []string{"manuell", "ohne system"},
		apply: func(p *domain.UserProfile) {
			p.HasAutomation = domain.Bool(false)
			p.UsesCRM = domain.Bool(false)
		},
	},
}

var goalRules = []keywordRule{
	{[]string{"termine"}, func(p *domain.UserProfile) { p.PrimaryGoal = domain.GoalTermine }},
	{[]string{"abschluss", "verkauf"}, func(p *domain.UserProfile) { p.PrimaryGoal = domain.GoalAbschluesse }},
	{[]string{"leads", "kontakte"}, func(p *domain.UserProfile) { p.PrimaryGoal = domain.GoalLeads }},
	{[]string{"struktur", "organisation"}, func(p *domain.UserProfile) { p.PrimaryGoal = domain.GoalStruktur }},
}

// urgencyRules always end in a catch-all, so urgency is set on every call.
var urgencyRules = []keywordRule{
	{[]string{"sofort", "dringend", "schnell"}, func(p *domain.UserProfile) { p.UrgencyLevel = domain.UrgencyHigh }},
	{[]string{"zeit lassen", "langfristig"}, func(p *domain.UserProfile) { p.UrgencyLevel = domain.UrgencyLow }},
	{nil, func(p *domain.UserProfile) { p.UrgencyLevel = domain.UrgencyMedium }},
}

var industryRules = []keywordRule{
	{[]string{"immobilien", "makler"}, func(p *domain.UserProfile) { p.Industry = "immobilien" }},
}

// Extract derives profile facts from message and returns an updated copy of
// profile. The history argument mirrors Detect; the rules only read the
// current message.
func Extract(message string, _ []string, profile domain.UserProfile) domain.UserProfile {
	msg := strings.ToLower(message)
	out := profile.Clone()

	if n, ok := firstNumber(message); ok {
		for _, r := range numberRules {
			if containsAny(msg, r.keywords) {
				r.assign(&out, n)
				break
			}
		}
	}

	applyFirst(msg, experienceRules, &out)

	for _, r := range leadSourceRules {
		if containsAny(msg, r.keywords) {
			out.LeadSources = append(out.LeadSources, r.label)
		}
	}

	applyFirst(msg, automationRules, &out)
	applyFirst(msg, goalRules, &out)
	applyFirst(msg, urgencyRules, &out)
	applyFirst(msg, industryRules, &out)

	return out
}

// applyFirst runs the first rule whose keywords match. A rule without
// keywords always matches.
func applyFirst(msg string, rules []keywordRule, p *domain.UserProfile) bool {
	for _, r := range rules {
		if r.keywords == nil || containsAny(msg, r.keywords) {
			r.apply(p)
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// firstNumber returns the first maximal digit run of s, saturated at MaxLeadCount.
func firstNumber(s string) (int, bool) {
	run := digitRun.FindString(s)
	if run == "" {
		return 0, false
	}
	return parseSaturated(run), true
}

func parseSaturated(run string) int {
	n, err := strconv.Atoi(run)
	if err != nil {
		return MaxLeadCount
	}
	return n
}
