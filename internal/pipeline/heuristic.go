package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teemow/mailchat/internal/domain"
)

// GistLength is the number of characters of the cleaned body used as the
// heuristic summary.
const GistLength = 220

const (
	maxActionItems = 3
	maxEntities    = 5
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]`)
	actionRe        = regexp.MustCompile(`(?i)\b(need|please|deadline|approve|review|action|required|todo)\b`)
	entityRe        = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

type keywordRule struct {
	category domain.Category
	terms    []string
	priority float64
}

// keywordTable is scanned in order; the first category with any hit wins.
var keywordTable = []keywordRule{
	{domain.CategoryNewsletter, []string{"unsubscribe", "weekly", "digest", "newsletter"}, 0.20},
	{domain.CategoryPromotion, []string{"deal", "discount", "offer", "sale"}, 0.18},
	{domain.CategoryAnnouncement, []string{"announcement", "release", "launch", "press"}, 0.45},
	{domain.CategoryNotification, []string{"alert", "incident", "failed", "status"}, 0.75},
	{domain.CategorySystem, []string{"otp", "verification", "security", "password"}, 0.80},
	{domain.CategoryWork, []string{"deadline", "meeting", "proposal", "approval"}, 0.85},
	{domain.CategoryPersonal, []string{"family", "dinner", "weekend", "trip"}, 0.60},
}

// HeuristicSummary builds a summary from a cleaned body without any I/O.
func HeuristicSummary(cleaned string) domain.Summary {
	body := strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))

	gist := body
	if runes := []rune(body); len(runes) > GistLength {
		gist = string(runes[:GistLength])
	}

	actions := []string{}
	for _, sentence := range sentenceSplitRe.Split(body, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" || !actionRe.MatchString(sentence) {
			continue
		}
		actions = append(actions, sentence)
		if len(actions) == maxActionItems {
			break
		}
	}

	entities := []string{}
	seen := make(map[string]struct{})
	for _, m := range entityRe.FindAllString(body, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		entities = append(entities, m)
		if len(entities) == maxEntities {
			break
		}
	}

	return domain.Summary{Summary: gist, ActionItems: actions, Entities: entities}
}

// HeuristicClassification classifies a cleaned body with the keyword table.
func HeuristicClassification(cleaned string) domain.Classification {
	lower := strings.ToLower(cleaned)

	for _, rule := range keywordTable {
		var matched []string
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				matched = append(matched, term)
			}
		}
		if len(matched) > 0 {
			return domain.Classification{
				Category:      rule.category,
				Confidence:    0.8,
				PriorityScore: rule.priority,
				Reasoning:     fmt.Sprintf("keyword match (%s)", strings.Join(matched, ", ")),
			}
		}
	}

	return domain.Classification{
		Category:      domain.CategoryPersonal,
		Confidence:    0.5,
		PriorityScore: 0.45,
		Reasoning:     "no deterministic match",
	}
}
