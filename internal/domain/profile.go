package domain

// Challenge is the user's main obstacle as far as it has been inferred.
type Challenge string

const (
	ChallengeReaktivierung  Challenge = "reaktivierung"
	ChallengeLeadGeneration Challenge = "lead_generation"
	ChallengeConversion     Challenge = "conversion"
	ChallengeUmsetzung      Challenge = "umsetzung"
	ChallengeMotivation     Challenge = "motivation"
)

// Goal is the primary outcome the user is after.
type Goal string

const (
	GoalTermine     Goal = "termine"
	GoalAbschluesse Goal = "abschlüsse"
	GoalLeads       Goal = "leads"
	GoalStruktur    Goal = "struktur"
)

// Urgency is the inferred urgency level of the user's request.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// UserProfile accumulates facts inferred from free-text user messages.
// Nil pointers and empty strings mean "not known yet".
type UserProfile struct {
	HasOldLeads        *bool     `json:"hasOldLeads,omitempty"`
	OldLeadsCount      *int      `json:"oldLeadsCount,omitempty"`
	NewLeadsPerMonth   *int      `json:"newLeadsPerMonth,omitempty"`
	LeadSources        []string  `json:"leadSources,omitempty"`
	IsBeginnerInSales  *bool     `json:"isBeginnerInSales,omitempty"`
	HasExperience      *bool     `json:"hasExperience,omitempty"`
	MainChallenge      Challenge `json:"mainChallenge,omitempty"`
	TimeAvailableDaily *int      `json:"timeAvailableDaily,omitempty"`
	UrgencyLevel       Urgency   `json:"urgencyLevel,omitempty"`
	PrimaryGoal        Goal      `json:"primaryGoal,omitempty"`
	HasAutomation      *bool     `json:"hasAutomation,omitempty"`
	UsesCRM            *bool     `json:"usesCRM,omitempty"`
	Industry           string    `json:"industry,omitempty"`
	TargetAudience     string    `json:"targetAudience,omitempty"`
}

// Clone returns a deep copy of the profile.
func (p UserProfile) Clone() UserProfile {
	c := p
	c.HasOldLeads = cloneBool(p.HasOldLeads)
	c.OldLeadsCount = cloneInt(p.OldLeadsCount)
	c.NewLeadsPerMonth = cloneInt(p.NewLeadsPerMonth)
	c.IsBeginnerInSales = cloneBool(p.IsBeginnerInSales)
	c.HasExperience = cloneBool(p.HasExperience)
	c.TimeAvailableDaily = cloneInt(p.TimeAvailableDaily)
	c.HasAutomation = cloneBool(p.HasAutomation)
	c.UsesCRM = cloneBool(p.UsesCRM)
	if p.LeadSources != nil {
		c.LeadSources = append([]string(nil), p.LeadSources...)
	}
	return c
}

// Merge applies every field that is set in patch on top of a copy of p.
// Lead sources are appended, never replaced.
func (p UserProfile) Merge(patch UserProfile) UserProfile {
	out := p.Clone()
	if patch.HasOldLeads != nil {
		out.HasOldLeads = cloneBool(patch.HasOldLeads)
	}
	if patch.OldLeadsCount != nil {
		out.OldLeadsCount = cloneInt(patch.OldLeadsCount)
	}
	if patch.NewLeadsPerMonth != nil {
		out.NewLeadsPerMonth = cloneInt(patch.NewLeadsPerMonth)
	}
	if len(patch.LeadSources) > 0 {
		out.LeadSources = append(out.LeadSources, patch.LeadSources...)
	}
	if patch.IsBeginnerInSales != nil {
		out.IsBeginnerInSales = cloneBool(patch.IsBeginnerInSales)
	}
	if patch.HasExperience != nil {
		out.HasExperience = cloneBool(patch.HasExperience)
	}
	if patch.MainChallenge != "" {
		out.MainChallenge = patch.MainChallenge
	}
	if patch.TimeAvailableDaily != nil {
		out.TimeAvailableDaily = cloneInt(patch.TimeAvailableDaily)
	}
	if patch.UrgencyLevel != "" {
		out.UrgencyLevel = patch.UrgencyLevel
	}
	if patch.PrimaryGoal != "" {
		out.PrimaryGoal = patch.PrimaryGoal
	}
	if patch.HasAutomation != nil {
		out.HasAutomation = cloneBool(patch.HasAutomation)
	}
	if patch.UsesCRM != nil {
		out.UsesCRM = cloneBool(patch.UsesCRM)
	}
	if patch.Industry != "" {
		out.Industry = patch.Industry
	}
	if patch.TargetAudience != "" {
		out.TargetAudience = patch.TargetAudience
	}
	return out
}

// OldLeads returns the old lead count or 0 when unknown.
func (p UserProfile) OldLeads() int { return derefInt(p.OldLeadsCount) }

// NewLeads returns the new leads per month or 0 when unknown.
func (p UserProfile) NewLeads() int { return derefInt(p.NewLeadsPerMonth) }

// Automated reports whether the user is known to use automation.
func (p UserProfile) Automated() bool { return p.HasAutomation != nil && *p.HasAutomation }

// Beginner reports whether the user is known to be new to sales.
func (p UserProfile) Beginner() bool { return p.IsBeginnerInSales != nil && *p.IsBeginnerInSales }

// Experienced reports whether the user is known to have sales experience.
func (p UserProfile) Experienced() bool { return p.HasExperience != nil && *p.HasExperience }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
