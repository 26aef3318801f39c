package nux

import (
	"strings"
	"text/template"

	"github.com/ashureev/nux-coach/internal/domain"
)

// State is the response selector state a reply was produced in.
type State string

const (
	StateGreeting   State = "greeting"
	StateClarifying State = "clarifying"
	StatePlan       State = "plan"
	StatePostPlan   State = "post_plan"
)

// Reply is the scripted answer for one turn.
type Reply struct {
	State         State           `json:"state"`
	Mode          domain.ModeType `json:"mode"`
	Text          string          `json:"text"`
	NextQuestions []string        `json:"nextQuestions,omitempty"`
	ActionItems   []string        `json:"actionItems,omitempty"`
	FollowUps     []string        `json:"followUpSuggestions,omitempty"`
	Expect        string          `json:"expect,omitempty"`
	Delegate      bool            `json:"delegate,omitempty"`
	Analysis      *Analysis       `json:"analysis,omitempty"`
}

// Planned is the set of modes that already delivered their plan.
type Planned map[domain.ModeType]bool

const greetingWindow = 2

var (
	reaktivierungPlanTmpl = template.Must(template.New("reaktivierung").Parse(reaktivierungPlan))
	coachingPlanTmpl      = template.Must(template.New("coaching").Parse(coachingPlan))
	segmentAdviceTmpl     = template.Must(template.New("segment").Parse(segmentAdvice))
	crmAdviceTmpl         = template.Must(template.New("crm").Parse(crmAdvice))
	focusPromptTmpl       = template.Must(template.New("focus").Parse(focusPrompt))
)

// Select picks the scripted reply for message given the current context.
// It never fails: missing data always turns into a clarifying question.
func Select(message string, c ConversationContext, planned Planned) Reply {
	mode := c.Mode.Type
	if mode == domain.ModeAuto {
		return Reply{
			State:         StateGreeting,
			Mode:          domain.ModeAuto,
			Text:          autoIntro,
			NextQuestions: []string{"Aktuelle Situation", "Ziele", "Herausforderungen"},
		}
	}
	if c.MessageCount <= greetingWindow {
		return greeting(mode)
	}
	if planned[mode] {
		return postPlan(message, c)
	}

	switch mode {
	case domain.ModeReaktivierung:
		return reaktivierung(c)
	case domain.ModeUmsetzung:
		return umsetzung(message)
	default:
		return coaching(c)
	}
}

func greeting(mode domain.ModeType) Reply {
	r := Reply{State: StateGreeting, Mode: mode}
	switch mode {
	case domain.ModeReaktivierung:
		r.Text = reaktivierungGreeting
		r.NextQuestions = []string{"Zeitraum seit letztem Kontakt", "Lead-Quellen", "Anzahl der Kontakte"}
	case domain.ModeUmsetzung:
		r.Text = umsetzungGreeting
		r.NextQuestions = []string{"Haupthindernis", "Tagesstruktur", "Motivation"}
		r.Expect = ExpectObstacle
	default:
		r.Mode = domain.ModeCoaching
		r.Text = coachingGreeting
		r.NextQuestions = []string{"Zielgruppe", "Verfügbare Zeit", "Budget", "Erfahrung"}
		r.Expect = ExpectTargetAudience
	}
	return r
}

// missingQuestions maps each reactivation fact to its clarifying question.
var missingQuestions = map[string]struct {
	text, expect, topic string
}{
	MissingOldLeads:   {askOldLeads, ExpectOldLeads, "Kontaktanzahl"},
	MissingNewLeads:   {askNewLeads, ExpectNewLeads, "Neue Leads pro Monat"},
	MissingSources:    {askLeadSources, ExpectLeadSources, "Lead-Quellen"},
	MissingAutomation: {askAutomation, ExpectAutomation, "Automatisierung"},
}

func reaktivierung(c ConversationContext) Reply {
	if len(c.MissingInfo) > 0 {
		q := missingQuestions[c.MissingInfo[0]]
		return Reply{
			State:         StateClarifying,
			Mode:          domain.ModeReaktivierung,
			Text:          q.text,
			NextQuestions: []string{q.topic},
			Expect:        q.expect,
		}
	}

	p := c.Profile
	a := PlanAnalysis(p)
	sources := "Verschiedene"
	if len(p.LeadSources) > 0 {
		sources = strings.Join(p.LeadSources, ", ")
	}
	text := render(reaktivierungPlanTmpl, map[string]any{
		"Old":         p.OldLeads(),
		"New":         p.NewLeads(),
		"Automated":   p.Automated(),
		"Sources":     sources,
		"Total":       a.TotalContacts,
		"Conversions": a.PotentialConversions,
		"Revenue":     FormatNumber(a.RevenueEstimate),
	})
	return Reply{
		State: StatePlan,
		Mode:  domain.ModeReaktivierung,
		Text:  text,
		ActionItems: []string{
			"Kontakte segmentieren (heiß/warm/kalt)",
			"Personalisierte Nachrichten erstellen",
			"Multi-Channel-Ansatz implementieren",
			"Follow-up-System optimieren",
		},
		FollowUps: []string{
			"Welchen Schritt willst du zuerst angehen?",
			"Brauchst du Templates für die Nachrichten?",
			"Soll ich dir bei der Segmentierung helfen?",
		},
		Analysis: &a,
	}
}

func coaching(c ConversationContext) Reply {
	p := c.Profile
	clarify := func(text, expect, topic string) Reply {
		return Reply{
			State:         StateClarifying,
			Mode:          domain.ModeCoaching,
			Text:          text,
			NextQuestions: []string{topic},
			Expect:        expect,
		}
	}
	switch {
	case p.TargetAudience == "":
		return clarify(askTargetAudience, ExpectTargetAudience, "Zielgruppe")
	case p.TimeAvailableDaily == nil || *p.TimeAvailableDaily == 0:
		return clarify(askTime, ExpectTime, "Zeitaufwand")
	case p.IsBeginnerInSales == nil:
		return clarify(askExperience, ExpectExperience, "Erfahrungslevel")
	}

	text := render(coachingPlanTmpl, map[string]any{
		"Beginner": p.Beginner(),
		"Hours":    *p.TimeAvailableDaily,
		"Audience": p.TargetAudience,
	})
	return Reply{
		State: StatePlan,
		Mode:  domain.ModeCoaching,
		Text:  text,
		ActionItems: []string{
			"Zielgruppe definieren",
			"Lead-Magnet erstellen",
			"Erste Kampagne starten",
			"Follow-up-System aufbauen",
		},
	}
}

// obstacles is ordered: the first matching category wins.
var obstacles = []struct {
	keywords []string
	plan     string
}{
	{[]string{"zeit", "zeitaufwand"}, zeitPlan},
	{[]string{"struktur", "plan"}, strukturPlan},
	{[]string{"motivation", "durchhalten"}, motivationPlan},
}

func umsetzung(message string) Reply {
	msg := strings.ToLower(message)
	for _, o := range obstacles {
		if containsAny(msg, o.keywords) {
			return Reply{
				State: StatePlan,
				Mode:  domain.ModeUmsetzung,
				Text:  o.plan,
				ActionItems: []string{
					"Tagesplan erstellen",
					"Prioritäten setzen",
					"Tracking-System einführen",
					"Belohnungssystem etablieren",
				},
			}
		}
	}
	return Reply{
		State:         StateClarifying,
		Mode:          domain.ModeUmsetzung,
		Text:          askObstacle,
		NextQuestions: []string{"Haupthindernis"},
		Expect:        ExpectObstacle,
	}
}

func postPlan(message string, c ConversationContext) Reply {
	msg := strings.ToLower(message)
	p := c.Profile
	r := Reply{State: StatePostPlan, Mode: c.Mode.Type}

	switch {
	case containsAny(msg, []string{"schritt 1", "sortier", "segmentier"}):
		r.Text = render(segmentAdviceTmpl, map[string]any{"Old": p.OldLeads()})
	case containsAny(msg, []string{"schritt 2", "personalisiert", "nachricht"}):
		r.Text = messageAdvice
	case containsAny(msg, []string{"automation", "crm", "system"}):
		if p.Automated() {
			r.Text = automationTuningAdvice
		} else {
			r.Text = render(crmAdviceTmpl, map[string]any{"Total": p.OldLeads() + p.NewLeads()})
		}
	default:
		r.Text = render(focusPromptTmpl, map[string]any{
			"KnowsLeads": p.OldLeadsCount != nil || p.NewLeadsPerMonth != nil,
			"Old":        p.OldLeads(),
			"New":        p.NewLeads(),
		})
		r.Delegate = true
	}
	return r
}

// render executes a canned template. The templates are fixed and their data
// is built here, so an execution error means a broken template.
func render(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return Apology
	}
	return b.String()
}
