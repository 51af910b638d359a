package suggest

import "github.com/medoshield/chatassist/internal/models"

// MaxSuggestions is the upper bound on any batch handed to a caller.
const MaxSuggestions = 5

// CategoryDefault is reported by Classify when no keyword rule matched.
const CategoryDefault = "default"

// Rule maps a keyword set to a fixed batch. A rule matches when any keyword
// is a substring of the case-folded message content.
type Rule struct {
	Category string
	Keywords []string
	Batch    []models.Suggestion
}

// RuleSet is the ordered rule list and fallback batch for one role.
type RuleSet struct {
	Rules   []Rule
	Default []models.Suggestion
}

var patientDefault = []models.Suggestion{
	{ID: 1, Text: "What tests do I need based on my symptoms?", Icon: "🧪"},
	{ID: 2, Text: "How often should I exercise?", Icon: "🏃"},
	{ID: 3, Text: "What side effects should I watch for?", Icon: "⚠️"},
	{ID: 4, Text: "Should I change my diet?", Icon: "🥗"},
	{ID: 5, Text: "When should I come back for a follow-up?", Icon: "📅"},
}

var doctorDefault = []models.Suggestion{
	{ID: 1, Text: "I recommend we schedule more frequent check-ups", Icon: "📋"},
	{ID: 2, Text: "Have you noticed any new symptoms?", Icon: "🔍"},
	{ID: 3, Text: "Your medication may need adjustment", Icon: "💊"},
	{ID: 4, Text: "I want to do some additional tests", Icon: "🧬"},
	{ID: 5, Text: "Please monitor this closely and report back", Icon: "📊"},
}

// Rule order is priority order: the first matching rule wins.
var ruleTable = map[models.Role]RuleSet{
	models.RolePatient: {
		Rules: []Rule{
			{
				Category: "symptom",
				Keywords: []string{"symptom", "pain", "sick"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "What tests do I need?", Icon: "🧪"},
					{ID: 2, Text: "How long will this last?", Icon: "⏱️"},
					{ID: 3, Text: "What can I do to manage it?", Icon: "💪"},
					{ID: 4, Text: "Should I see a specialist?", Icon: "🏥"},
					{ID: 5, Text: "What medications help?", Icon: "💊"},
				},
			},
			{
				Category: "medication",
				Keywords: []string{"medication", "drug", "prescription"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "What are the side effects?", Icon: "⚠️"},
					{ID: 2, Text: "When should I take it?", Icon: "⏰"},
					{ID: 3, Text: "Can I take it with food?", Icon: "🍽️"},
					{ID: 4, Text: "What if I miss a dose?", Icon: "❓"},
					{ID: 5, Text: "How long will I need it?", Icon: "📅"},
				},
			},
			{
				Category: "exercise",
				Keywords: []string{"exercise", "workout", "fitness"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "How often should I exercise?", Icon: "🏃"},
					{ID: 2, Text: "What type of exercise is best?", Icon: "🚴"},
					{ID: 3, Text: "Is this activity safe for me?", Icon: "✅"},
					{ID: 4, Text: "What are my limits?", Icon: "⚡"},
					{ID: 5, Text: "Should I modify my routine?", Icon: "🔄"},
				},
			},
			{
				Category: "diet",
				Keywords: []string{"diet", "food", "eat"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "What foods should I avoid?", Icon: "🚫"},
					{ID: 2, Text: "What foods are good for me?", Icon: "✅"},
					{ID: 3, Text: "Should I count calories?", Icon: "📊"},
					{ID: 4, Text: "Do I need supplements?", Icon: "💊"},
					{ID: 5, Text: "What about alcohol?", Icon: "🍷"},
				},
			},
		},
		Default: patientDefault,
	},
	models.RoleDoctor: {
		Rules: []Rule{
			{
				Category: "results",
				Keywords: []string{"test", "result", "lab"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "These results show a concerning trend", Icon: "📉"},
					{ID: 2, Text: "We should do more tests", Icon: "🧬"},
					{ID: 3, Text: "Your results are within normal range", Icon: "✅"},
					{ID: 4, Text: "Let me adjust your treatment plan", Icon: "📋"},
					{ID: 5, Text: "Please repeat these tests in a month", Icon: "🔄"},
				},
			},
			{
				Category: "symptom",
				Keywords: []string{"symptom", "complaint", "feel"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "I recommend we schedule more frequent visits", Icon: "📅"},
					{ID: 2, Text: "Have you had any other symptoms?", Icon: "🔍"},
					{ID: 3, Text: "This may require additional testing", Icon: "🧪"},
					{ID: 4, Text: "Your medication may need adjustment", Icon: "💊"},
					{ID: 5, Text: "Please keep a symptom journal", Icon: "📔"},
				},
			},
			{
				Category: "medication",
				Keywords: []string{"medication", "treatment"},
				Batch: []models.Suggestion{
					{ID: 1, Text: "I recommend changing your dosage", Icon: "⚙️"},
					{ID: 2, Text: "Try switching to this medication instead", Icon: "💊"},
					{ID: 3, Text: "Continue with your current plan", Icon: "✅"},
					{ID: 4, Text: "You may need to add another medication", Icon: "➕"},
					{ID: 5, Text: "We can stop this medication now", Icon: "🛑"},
				},
			},
		},
		Default: doctorDefault,
	},
}

// Rules returns a copy of the rule set for role. ok is false for unknown roles.
func Rules(role models.Role) (RuleSet, bool) {
	set, ok := ruleTable[role]
	if !ok {
		return RuleSet{}, false
	}
	out := RuleSet{
		Rules:   make([]Rule, len(set.Rules)),
		Default: cloneBatch(set.Default),
	}
	for i, r := range set.Rules {
		out.Rules[i] = Rule{
			Category: r.Category,
			Keywords: append([]string(nil), r.Keywords...),
			Batch:    cloneBatch(r.Batch),
		}
	}
	return out, true
}

// DefaultBatch returns the role's fallback batch, or an empty slice for an
// unknown role.
func DefaultBatch(role models.Role) []models.Suggestion {
	set, ok := ruleTable[role]
	if !ok {
		return []models.Suggestion{}
	}
	return cloneBatch(set.Default)
}

func cloneBatch(batch []models.Suggestion) []models.Suggestion {
	out := make([]models.Suggestion, len(batch))
	copy(out, batch)
	return out
}
