package nux

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/nux-coach/internal/domain"
)

// Expectations name the profile field a clarifying reply asked for.
const (
	ExpectNone           = ""
	ExpectOldLeads       = "oldLeadsCount"
	ExpectNewLeads       = "newLeadsPerMonth"
	ExpectLeadSources    = "leadSources"
	ExpectAutomation     = "hasAutomation"
	ExpectTargetAudience = "targetAudience"
	ExpectTime           = "timeAvailableDaily"
	ExpectExperience     = "experience"
	ExpectObstacle       = "obstacle"
)

const maxAudienceRunes = 200

var (
	yesWord = regexp.MustCompile(`(?i)\b(ja|jep|klar|genau|jo)\b`)
	noWord  = regexp.MustCompile(`(?i)\b(nein|nee|nicht|kein|keine)\b`)
)

// Capture reads the answer to the question asked on the previous turn. It
// only fills fields that are still unset, so keyword extraction always wins.
func Capture(expect, message string, profile domain.UserProfile) domain.UserProfile {
	out := profile.Clone()
	text := strings.TrimSpace(message)
	if text == "" {
		return out
	}
	// A number next to a keyword belongs to Extract.
	keyed := hasNumberKeyword(strings.ToLower(text))

	switch expect {
	case ExpectTargetAudience:
		if out.TargetAudience == "" {
			out.TargetAudience = truncateRunes(text, maxAudienceRunes)
		}
	case ExpectOldLeads:
		if n, ok := firstNumber(text); ok && !keyed && out.OldLeadsCount == nil {
			out.OldLeadsCount = domain.Int(n)
			out.HasOldLeads = domain.Bool(n > 0)
		}
	case ExpectNewLeads:
		if n, ok := firstNumber(text); ok && !keyed && out.NewLeadsPerMonth == nil {
			out.NewLeadsPerMonth = domain.Int(n)
		}
	case ExpectTime:
		if n, ok := firstNumber(text); ok && !keyed && out.TimeAvailableDaily == nil {
			out.TimeAvailableDaily = domain.Int(n)
		}
	case ExpectAutomation:
		if out.HasAutomation != nil {
			break
		}
		if v, ok := yesNoAnswer(text); ok {
			out.HasAutomation = domain.Bool(v)
			out.UsesCRM = domain.Bool(v)
		}
	case ExpectExperience:
		if out.IsBeginnerInSales != nil {
			break
		}
		if v, ok := yesNoAnswer(text); ok {
			out.HasExperience = domain.Bool(v)
			out.IsBeginnerInSales = domain.Bool(!v)
		}
	}
	return out
}

// yesNoAnswer treats a negation as the stronger signal: "ja, aber nicht
// automatisch" is a no.
func yesNoAnswer(text string) (bool, bool) {
	if noWord.MatchString(text) {
		return false, true
	}
	if yesWord.MatchString(text) {
		return true, true
	}
	return false, false
}

func hasNumberKeyword(lower string) bool {
	for _, r := range numberRules {
		if containsAny(lower, r.keywords) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
