package dates

import (
	"regexp"
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"
)

// DefaultHour is the local hour applied when an expression names a day
// but no time of day.
const DefaultHour = 9

// explicitTimePattern recognizes expressions that anchor an hour:
// "at 2", "2pm", "14:30", "noon", "midnight" and day-part words that the
// parser maps to a concrete hour.
var explicitTimePattern = regexp.MustCompile(`(?i)(\bat\s+\d|\d{1,2}:\d{2}|\d{1,2}\s*(?:am|pm)\b|\b(?:noon|midnight|morning|afternoon|evening|night)\b)`)

// Result is an interpreted date/time expression. HasExplicitTime
// distinguishes a stated hour from the 09:00 default.
type Result struct {
	Time            time.Time
	HasExplicitTime bool
}

// Interpreter converts free-text date expressions into absolute
// timestamps in a configured civil timezone.
type Interpreter struct {
	loc *time.Location
}

func NewInterpreter(loc *time.Location) *Interpreter {
	if loc == nil {
		loc = time.UTC
	}
	return &Interpreter{loc: loc}
}

// Interpret parses an expression relative to now. Ambiguous expressions
// prefer the future, so "Friday" is always the next upcoming Friday.
// Returns ok=false on total parse failure; that is a user-input error,
// not a system fault.
func (i *Interpreter) Interpret(expr string, now time.Time) (Result, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Result{}, false
	}
	base := now.In(i.loc)

	parsed, ok := parseWithVariants(expr, base)
	if !ok {
		return Result{}, false
	}
	parsed = parsed.In(i.loc)

	if explicitTimePattern.MatchString(expr) {
		return Result{Time: parsed, HasExplicitTime: true}, true
	}
	// No stated hour: pin to the default hour on the parsed calendar
	// date. Constructing the time in the location computes the correct
	// UTC offset for that date, so DST transitions are handled.
	year, month, day := parsed.Date()
	defaulted := time.Date(year, month, day, DefaultHour, 0, 0, 0, i.loc)
	return Result{Time: defaulted, HasExplicitTime: false}, true
}

// parseWithVariants retries bare fragments with "on" and "at" prefixes,
// which recovers expressions like "friday 2pm" or "the 14th".
func parseWithVariants(expr string, base time.Time) (time.Time, bool) {
	for _, attempt := range []string{expr, "on " + expr, "at " + expr} {
		parsed, err := naturaldate.Parse(attempt, base, naturaldate.WithDirection(naturaldate.Future))
		if err == nil && !parsed.Equal(base) {
			return parsed, true
		}
		// "now"-style expressions legitimately parse to the base time.
		if err == nil && strings.Contains(strings.ToLower(attempt), "now") {
			return parsed, true
		}
	}
	return time.Time{}, false
}
