package nux

import (
	"fmt"
	"strings"

	"github.com/ashureev/nux-coach/internal/domain"
)

// Labels of the reactivation facts, in the order they are asked for.
const (
	MissingOldLeads   = "Anzahl alter Leads"
	MissingNewLeads   = "Neue Leads pro Monat"
	MissingSources    = "Lead-Quellen"
	MissingAutomation = "Automatisierung-Status"
)

// ConversationContext is derived on every turn and never stored.
type ConversationContext struct {
	MessageCount int                `json:"messageCount"`
	Profile      domain.UserProfile `json:"userProfile"`
	Mode         domain.NuxMode     `json:"currentMode"`
	KeyInsights  []string           `json:"keyInsights"`
	MissingInfo  []string           `json:"missingInfo"`
}

// fact pairs a profile fact with its insight text and missing label.
type fact struct {
	missing string
	insight func(p domain.UserProfile) (string, bool)
}

var facts = []fact{
	{MissingOldLeads, func(p domain.UserProfile) (string, bool) {
		if p.OldLeadsCount == nil {
			return "", false
		}
		return fmt.Sprintf("Hat %d alte Leads", *p.OldLeadsCount), true
	}},
	{MissingNewLeads, func(p domain.UserProfile) (string, bool) {
		if p.NewLeadsPerMonth == nil {
			return "", false
		}
		return fmt.Sprintf("%d neue Leads/Monat", *p.NewLeadsPerMonth), true
	}},
	{MissingSources, func(p domain.UserProfile) (string, bool) {
		if len(p.LeadSources) == 0 {
			return "", false
		}
		return "Lead-Quellen: " + strings.Join(p.LeadSources, ", "), true
	}},
	{MissingAutomation, func(p domain.UserProfile) (string, bool) {
		if p.HasAutomation == nil {
			return "", false
		}
		return "Automatisierung: " + yesNo(*p.HasAutomation), true
	}},
}

// BuildContext derives the conversation context. Every tracked fact lands in
// exactly one of KeyInsights and MissingInfo.
func BuildContext(history []string, profile domain.UserProfile, mode domain.NuxMode) ConversationContext {
	c := ConversationContext{
		MessageCount: len(history),
		Profile:      profile.Clone(),
		Mode:         mode.Clone(),
		KeyInsights:  []string{},
		MissingInfo:  []string{},
	}
	for _, f := range facts {
		if text, ok := f.insight(profile); ok {
			c.KeyInsights = append(c.KeyInsights, text)
		} else {
			c.MissingInfo = append(c.MissingInfo, f.missing)
		}
	}
	return c
}

// Missing reports whether label is among the missing facts.
func (c ConversationContext) Missing(label string) bool {
	for _, m := range c.MissingInfo {
		if m == label {
			return true
		}
	}
	return false
}

// Summary renders the context as a short German note for the text generator.
func (c ConversationContext) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Aktueller Modus: %s (Sicherheit %.0f%%)\n", c.Mode.Type, c.Mode.Confidence*100)
	fmt.Fprintf(&b, "Bisherige Nachrichten: %d\n", c.MessageCount)
	if len(c.KeyInsights) > 0 {
		b.WriteString("Bekannt: " + strings.Join(c.KeyInsights, "; ") + "\n")
	}
	if len(c.MissingInfo) > 0 {
		b.WriteString("Noch offen: " + strings.Join(c.MissingInfo, ", ") + "\n")
	}
	if c.Profile.TargetAudience != "" {
		b.WriteString("Zielgruppe: " + c.Profile.TargetAudience + "\n")
	}
	if c.Profile.Industry != "" {
		b.WriteString("Branche: " + c.Profile.Industry + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func yesNo(b bool) string {
	if b {
		return "Ja"
	}
	return "Nein"
}
