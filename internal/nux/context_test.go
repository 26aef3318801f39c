package nux

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/nux-coach/internal/domain"
)

func TestBuildContext_EmptyProfile(t *testing.T) {
	t.Parallel()

	c := BuildContext([]string{"hallo"}, domain.UserProfile{}, domain.InitialMode())

	assert.Equal(t, 1, c.MessageCount)
	assert.Empty(t, c.KeyInsights)
	assert.Equal(t, []string{MissingOldLeads, MissingNewLeads, MissingSources, MissingAutomation}, c.MissingInfo)
}

func TestBuildContext_FullProfile(t *testing.T) {
	t.Parallel()

	p := domain.UserProfile{
		OldLeadsCount:    domain.Int(150),
		NewLeadsPerMonth: domain.Int(80),
		LeadSources:      []string{"Facebook Ads", "Empfehlungen"},
		HasAutomation:    domain.Bool(false),
	}
	c := BuildContext(nil, p, domain.InitialMode())

	assert.Equal(t, 0, c.MessageCount)
	assert.Equal(t, []string{
		"Hat 150 alte Leads",
		"80 neue Leads/Monat",
		"Lead-Quellen: Facebook Ads, Empfehlungen",
		"Automatisierung: Nein",
	}, c.KeyInsights)
	assert.Empty(t, c.MissingInfo)
}

func TestBuildContext_ZeroCountsAreKnown(t *testing.T) {
	t.Parallel()

	// What Extract records for "0 alte Leads".
	p := domain.UserProfile{OldLeadsCount: domain.Int(0), HasOldLeads: domain.Bool(false)}
	c := BuildContext(nil, p, domain.InitialMode())

	assert.Contains(t, c.KeyInsights, "Hat 0 alte Leads")
	assert.False(t, c.Missing(MissingOldLeads))
	assert.True(t, c.Missing(MissingNewLeads))
}

func TestBuildContext_FactsArePartitioned(t *testing.T) {
	t.Parallel()

	profiles := []domain.UserProfile{
		{},
		{NewLeadsPerMonth: domain.Int(3)},
		{LeadSources: []string{"Google Ads"}, HasAutomation: domain.Bool(true)},
	}
	for _, p := range profiles {
		c := BuildContext(nil, p, domain.InitialMode())
		assert.Len(t, c.KeyInsights, 4-len(c.MissingInfo))
	}
}

func TestBuildContext_Idempotent(t *testing.T) {
	t.Parallel()

	history := []string{"Ich habe 150 alte Kontakte", "80 neue pro Monat"}
	p := domain.UserProfile{OldLeadsCount: domain.Int(150), LeadSources: []string{"Google Ads"}}
	mode := domain.NuxMode{Type: domain.ModeReaktivierung, Confidence: 1}

	first := BuildContext(history, p, mode)
	second := BuildContext(history, p, mode)

	assert.Equal(t, first.KeyInsights, second.KeyInsights)
	assert.Equal(t, first.MissingInfo, second.MissingInfo)
}

func TestContextSummary(t *testing.T) {
	t.Parallel()

	p := domain.UserProfile{OldLeadsCount: domain.Int(20), TargetAudience: "Eigentümer in Köln"}
	c := BuildContext([]string{"a", "b"}, p, domain.NuxMode{Type: domain.ModeReaktivierung, Confidence: 0.8})
	s := c.Summary()

	assert.Contains(t, s, "Aktueller Modus: reaktivierung (Sicherheit 80%)")
	assert.Contains(t, s, "Hat 20 alte Leads")
	assert.Contains(t, s, "Noch offen: Neue Leads pro Monat, Lead-Quellen, Automatisierung-Status")
	assert.Contains(t, s, "Zielgruppe: Eigentümer in Köln")
}
