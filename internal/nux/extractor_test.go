package nux

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/nux-coach/internal/domain"
)

func TestExtract_NoKeywordIsNoOp(t *testing.T) {
	t.Parallel()

	base := domain.UserProfile{
		OldLeadsCount: domain.Int(12),
		HasOldLeads:   domain.Bool(true),
		LeadSources:   []string{"Google Ads"},
		UrgencyLevel:  domain.UrgencyMedium,
	}
	for _, msg := range []string{"", "hallo", "wie geht's dir heute?", "123", "äöü ß 🙂"} {
		got := Extract(msg, nil, base)
		assert.Equal(t, base, got, "message %q", msg)
	}
}

func TestExtract_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	base := domain.UserProfile{LeadSources: []string{"Google Ads"}}
	_ = Extract("facebook und 20 alte", nil, base)

	assert.Equal(t, []string{"Google Ads"}, base.LeadSources)
	assert.Nil(t, base.OldLeadsCount)
}

func TestExtract_OldLeadNumbers(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 150, 99999} {
		got := Extract("alte "+strconv.Itoa(n), nil, domain.UserProfile{})
		require.NotNil(t, got.OldLeadsCount)
		assert.Equal(t, n, *got.OldLeadsCount)
		require.NotNil(t, got.HasOldLeads)
		assert.Equal(t, n > 0, *got.HasOldLeads)
	}
}

func TestExtract_NumberPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		check   func(t *testing.T, p domain.UserProfile)
	}{
		{
			name:    "old wins over new",
			message: "Ich habe 150 alte und 80 neue Kontakte pro Monat",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.OldLeadsCount)
				assert.Equal(t, 150, *p.OldLeadsCount)
				assert.Nil(t, p.NewLeadsPerMonth)
			},
		},
		{
			name:    "new per month",
			message: "80 neue pro Monat",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.NewLeadsPerMonth)
				assert.Equal(t, 80, *p.NewLeadsPerMonth)
				assert.Nil(t, p.OldLeadsCount)
			},
		},
		{
			name:    "hours",
			message: "Ich habe 3 Stunden am Tag",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.TimeAvailableDaily)
				assert.Equal(t, 3, *p.TimeAvailableDaily)
			},
		},
		{
			name:    "number without keyword",
			message: "so etwa 40",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.Nil(t, p.OldLeadsCount)
				assert.Nil(t, p.NewLeadsPerMonth)
				assert.Nil(t, p.TimeAvailableDaily)
			},
		},
		{
			name:    "count above int32 is kept",
			message: "5000000000 alte Leads",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.OldLeadsCount)
				assert.Equal(t, 5_000_000_000, *p.OldLeadsCount)
			},
		},
		{
			name:    "huge number saturates",
			message: "99999999999999999999999 alte Leads",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.OldLeadsCount)
				assert.Equal(t, MaxLeadCount, *p.OldLeadsCount)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.check(t, Extract(tc.message, nil, domain.UserProfile{}))
		})
	}
}

func TestExtract_ExperienceBeginnerWins(t *testing.T) {
	t.Parallel()

	got := Extract("Ich bin neu im Vertrieb, hab aber schon mal Erfahrung gesammelt", nil, domain.UserProfile{})
	assert.True(t, got.Beginner())
	require.NotNil(t, got.HasExperience)
	assert.False(t, *got.HasExperience)

	got = Extract("Ich kenne mich aus", nil, domain.UserProfile{})
	assert.True(t, got.Experienced())
	assert.False(t, got.Beginner())
}

func TestExtract_LeadSourcesAppendWithoutDedup(t *testing.T) {
	t.Parallel()

	p := Extract("Facebook und Empfehlungen", nil, domain.UserProfile{})
	assert.Equal(t, []string{"Facebook Ads", "Empfehlungen"}, p.LeadSources)

	p = Extract("wieder facebook", nil, p)
	assert.Equal(t, []string{"Facebook Ads", "Empfehlungen", "Facebook Ads"}, p.LeadSources)
}

func TestExtract_Automation(t *testing.T) {
	t.Parallel()

	p := Extract("ja, wir nutzen ein CRM", nil, domain.UserProfile{})
	assert.True(t, p.Automated())
	require.NotNil(t, p.UsesCRM)
	assert.True(t, *p.UsesCRM)

	// "ohne system" also contains "system", the positive branch is checked first.
	p = Extract("alles ohne system", nil, domain.UserProfile{})
	assert.True(t, p.Automated())

	p = Extract("mache alles manuell", nil, domain.UserProfile{})
	require.NotNil(t, p.HasAutomation)
	assert.False(t, *p.HasAutomation)
}

func TestExtract_GoalPriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.GoalTermine, Extract("mehr Termine und Abschlüsse", nil, domain.UserProfile{}).PrimaryGoal)
	assert.Equal(t, domain.GoalAbschluesse, Extract("mehr verkauf", nil, domain.UserProfile{}).PrimaryGoal)
	assert.Equal(t, domain.GoalLeads, Extract("mehr kontakte", nil, domain.UserProfile{}).PrimaryGoal)
	assert.Equal(t, domain.GoalStruktur, Extract("bessere organisation", nil, domain.UserProfile{}).PrimaryGoal)
}

func TestExtract_UrgencyDefaultsToMedium(t *testing.T) {
	t.Parallel()

	p := Extract("ich brauche das sofort", nil, domain.UserProfile{})
	assert.Equal(t, domain.UrgencyHigh, p.UrgencyLevel)

	p = Extract("okay", nil, p)
	assert.Equal(t, domain.UrgencyMedium, p.UrgencyLevel)

	p = Extract("ich will das langfristig aufbauen", nil, p)
	assert.Equal(t, domain.UrgencyLow, p.UrgencyLevel)
}

func TestExtract_Industry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "immobilien", Extract("Ich bin Makler", nil, domain.UserProfile{}).Industry)
	assert.Empty(t, Extract("Ich verkaufe Autos", nil, domain.UserProfile{}).Industry)
}
