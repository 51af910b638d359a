package suggest

import (
	"strings"

	"github.com/medoshield/chatassist/internal/models"
)

// Classify returns the category of the first rule whose keywords appear in
// the last message, CategoryDefault when nothing matches or the conversation
// is empty, and "" for an unknown role.
func Classify(conversation []models.Message, role models.Role) string {
	set, ok := ruleTable[role]
	if !ok {
		return ""
	}
	if rule := matchRule(set, conversation); rule != nil {
		return rule.Category
	}
	return CategoryDefault
}

// ClassifyAndSuggest is the offline path: it picks a canned batch from the
// last message of the conversation and never fails for a known role.
func ClassifyAndSuggest(conversation []models.Message, role models.Role) []models.Suggestion {
	set, ok := ruleTable[role]
	if !ok {
		return []models.Suggestion{}
	}
	if rule := matchRule(set, conversation); rule != nil {
		return cloneBatch(rule.Batch)
	}
	return cloneBatch(set.Default)
}

func matchRule(set RuleSet, conversation []models.Message) *Rule {
	if len(conversation) == 0 {
		return nil
	}
	content := strings.ToLower(conversation[len(conversation)-1].Content)
	for i := range set.Rules {
		for _, kw := range set.Rules[i].Keywords {
			if strings.Contains(content, kw) {
				return &set.Rules[i]
			}
		}
	}
	return nil
}
