package nux

import (
	"strings"

	"github.com/ashureev/nux-coach/internal/domain"
)

const (
	messageWeight = 2
	historyWeight = 1
	profileBonus  = 3
	// defaultConfidence is reported when nothing scored at all.
	defaultConfidence = 0.3
	confidenceScale   = 5.0
)

// modePhrases is ordered: ties go to the earlier mode.
var modePhrases = []struct {
	mode    domain.ModeType
	phrases []string
}{
	{domain.ModeReaktivierung, []string{
		"alte leads", "alte kontakte", "warme leads", "unbearbeitet", "reaktivieren",
		"liegen rum", "nichts draus gemacht", "länger nicht gesprochen",
		"follow-up", "nachfassen", "wieder aktivieren",
	}},
	{domain.ModeCoaching, []string{
		"keine leads", "gar keine", "noch keine", "will loslegen", "durchstarten",
		"anfangen", "neu im vertrieb", "erste schritte", "wie fange ich an",
		"lead generation", "leads generieren",
	}},
	{domain.ModeUmsetzung, []string{
		"zieh nicht durch", "schaff es nicht", "motivation", "prokrastination",
		"struktur fehlt", "zeit fehlt", "nicht konsequent", "aufschieberitis",
		"weiß was zu tun ist", "kenne die theorie", "umsetzung schwer",
	}},
}

// Scores holds the raw per-mode scores of one detection pass.
type Scores map[domain.ModeType]int

// Detect scores message and history against the mode phrase tables and the
// profile signals and returns the winning mode.
func Detect(message string, history []string, profile domain.UserProfile) domain.NuxMode {
	mode, _ := DetectWithScores(message, history, profile)
	return mode
}

// DetectWithScores is Detect that also reports the per-mode scores.
func DetectWithScores(message string, history []string, profile domain.UserProfile) (domain.NuxMode, Scores) {
	msg := strings.ToLower(message)
	hist := strings.ToLower(strings.Join(history, " "))

	scores := Scores{}
	for _, mp := range modePhrases {
		score := 0
		for _, phrase := range mp.phrases {
			score += messageWeight * strings.Count(msg, phrase)
			score += historyWeight * strings.Count(hist, phrase)
		}
		scores[mp.mode] = score
	}

	if hasOldLeadSignal(profile) {
		scores[domain.ModeReaktivierung] += profileBonus
	}
	if profile.Beginner() || hasNoLeadFigures(profile) {
		scores[domain.ModeCoaching] += profileBonus
	}
	if profile.Experienced() && profile.MainChallenge == domain.ChallengeUmsetzung {
		scores[domain.ModeUmsetzung] += profileBonus
	}

	winner := domain.ModeCoaching
	best := 0
	for _, mp := range modePhrases {
		if s := scores[mp.mode]; s > best {
			best = s
			winner = mp.mode
		}
	}

	confidence := defaultConfidence
	if best > 0 {
		confidence = min(float64(best)/confidenceScale, 1.0)
	}

	return domain.NuxMode{
		Type:       winner,
		Confidence: confidence,
		Triggers:   triggersFor(winner, msg),
	}, scores
}

// Adopt applies the mode stickiness rule: auto yields to any detection, a
// specific mode only yields to a strictly more confident one.
func Adopt(held, detected domain.NuxMode) domain.NuxMode {
	if held.Type == domain.ModeAuto || detected.Confidence > held.Confidence {
		return detected.Clone()
	}
	return held
}

func triggersFor(mode domain.ModeType, msg string) []string {
	triggers := []string{}
	for _, mp := range modePhrases {
		if mp.mode != mode {
			continue
		}
		for _, phrase := range mp.phrases {
			if strings.Contains(msg, phrase) {
				triggers = append(triggers, phrase)
			}
		}
	}
	return triggers
}

func hasOldLeadSignal(p domain.UserProfile) bool {
	return (p.HasOldLeads != nil && *p.HasOldLeads) || p.OldLeads() > 0
}

// hasNoLeadFigures also holds for an empty profile: a user who has named no
// leads yet counts as starting from scratch.
func hasNoLeadFigures(p domain.UserProfile) bool {
	return !hasOldLeadSignal(p) && p.NewLeads() <= 0
}
