package intent

import (
	"regexp"
	"strings"
)

// fastRule is one deterministic pattern. Rules run in order; the first
// match wins and skips the remote classifier entirely. Captured text is
// passed through raw; fuzzy entity resolution happens downstream.
type fastRule struct {
	pattern *regexp.Regexp
	build   func(groups []string) Intent
}

var fastRules = []fastRule{
	{
		pattern: regexp.MustCompile(`(?i)^(ping|are you (there|alive|up)|status check)[?!.]*$`),
		build: func([]string) Intent {
			return Intent{Action: ActionDiagnostic, Confidence: 1}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(who'?s|who is|list|show( me)?) overdue[?!.]*$`),
		build: func([]string) Intent {
			return Intent{Action: ActionListOverdue, Confidence: 1}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(what'?s the |what is the )?status (on|of|for) (.+?)[?!.]*$`),
		build: func(groups []string) Intent {
			return Intent{Action: ActionCheckStatus, Subject: strings.TrimSpace(groups[3]), Confidence: 1}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^(i |we )?(just )?(contacted|talked to|spoke with|spoke to|met with) (.+?)( today| yesterday)?[?!.]*$`),
		build: func(groups []string) Intent {
			dateExpr := strings.TrimSpace(groups[5])
			if dateExpr == "" {
				dateExpr = "today"
			}
			return Intent{
				Action:     ActionLogContact,
				Subject:    strings.TrimSpace(groups[4]),
				DateExpr:   dateExpr,
				Confidence: 1,
			}
		},
	},
}

// matchFast runs the ordered fast-path rules against normalized text.
func matchFast(text string) (Intent, bool) {
	normalized := normalizeMessage(text)
	if normalized == "" {
		return Intent{}, false
	}
	for _, rule := range fastRules {
		if groups := rule.pattern.FindStringSubmatch(normalized); groups != nil {
			return rule.build(groups), true
		}
	}
	return Intent{}, false
}

func normalizeMessage(input string) string {
	value := strings.TrimSpace(input)
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.Join(strings.Fields(value), " ")
}
