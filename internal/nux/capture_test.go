package nux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/nux-coach/internal/domain"
)

func TestCapture(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expect  string
		message string
		check   func(t *testing.T, p domain.UserProfile)
	}{
		{
			name:    "target audience",
			expect:  ExpectTargetAudience,
			message: "  Familien mit Kindern  ",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.Equal(t, "Familien mit Kindern", p.TargetAudience)
			},
		},
		{
			name:    "bare number for old leads",
			expect:  ExpectOldLeads,
			message: "so um die 200",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.OldLeadsCount)
				assert.Equal(t, 200, *p.OldLeadsCount)
				assert.True(t, *p.HasOldLeads)
			},
		},
		{
			name:    "keyword number is left to extraction",
			expect:  ExpectOldLeads,
			message: "80 neue pro Monat",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.Nil(t, p.OldLeadsCount)
			},
		},
		{
			name:    "automation yes",
			expect:  ExpectAutomation,
			message: "Ja",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.True(t, p.Automated())
			},
		},
		{
			name:    "automation negation wins",
			expect:  ExpectAutomation,
			message: "ja, aber nicht wirklich",
			check: func(t *testing.T, p domain.UserProfile) {
				require.NotNil(t, p.HasAutomation)
				assert.False(t, *p.HasAutomation)
			},
		},
		{
			name:    "experience yes",
			expect:  ExpectExperience,
			message: "ja klar",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.True(t, p.Experienced())
				assert.False(t, p.Beginner())
			},
		},
		{
			name:    "no expectation",
			expect:  ExpectNone,
			message: "Familien mit Kindern",
			check: func(t *testing.T, p domain.UserProfile) {
				assert.Equal(t, domain.UserProfile{}, p)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.check(t, Capture(tc.expect, tc.message, domain.UserProfile{}))
		})
	}
}

func TestCapture_KeepsKnownValues(t *testing.T) {
	t.Parallel()

	p := domain.UserProfile{TargetAudience: "Senioren", HasAutomation: domain.Bool(true)}

	assert.Equal(t, "Senioren", Capture(ExpectTargetAudience, "Studenten", p).TargetAudience)
	assert.True(t, Capture(ExpectAutomation, "nein", p).Automated())
}

func TestCapture_TruncatesAudience(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ä", 500)
	got := Capture(ExpectTargetAudience, long, domain.UserProfile{})
	assert.Equal(t, 200, len([]rune(got.TargetAudience)))
}
