package match

import (
	"errors"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/cadence"
)

// AcceptThreshold is the maximum normalized distance (0 identical, 1
// unrelated) at which the top candidate is accepted as a match.
const AcceptThreshold = 0.35

// DuplicateThreshold is the stricter distance used by add-record
// duplicate detection. It intentionally differs from AcceptThreshold;
// the discrepancy is preserved pending product clarification.
const DuplicateThreshold = 0.30

// closeMargin: a runner-up within this distance of the winner is offered
// as a "did you mean" alternative without rejecting the primary match.
const closeMargin = 0.1

const maxSuggestions = 3

// ErrNoRecords means the candidate set itself was empty, which is a
// different failure from "no candidate scored well enough".
var ErrNoRecords = errors.New("no records available")

// Both classifier stages occasionally leave a leading preposition
// attached to the captured name ("with Wyatt Heavy").
var leadingPrepositions = []string{"with ", "for ", "to ", "on ", "about ", "regarding "}

// Outcome is the result of resolving a free-text name against the
// board's records.
type Outcome struct {
	Found        bool
	Record       board.Record
	Distance     float64
	Alternatives []string // close runner-ups when Found
	Suggestions  []string // best candidates when not Found
}

type scored struct {
	record   board.Record
	distance float64
}

// Resolve finds the record whose display name best matches the given
// free-text name. The cold marker is stripped from candidate names and
// leading prepositions from the query before comparison.
func Resolve(name string, records []board.Record) (Outcome, error) {
	if len(records) == 0 {
		return Outcome{}, ErrNoRecords
	}
	query := normalizeQuery(name)
	if query == "" {
		return Outcome{}, nil
	}

	ranked := make([]scored, 0, len(records))
	for _, record := range records {
		candidate := strings.ToLower(cadence.StripCold(record.Name))
		ranked = append(ranked, scored{record: record, distance: Distance(query, candidate)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	best := ranked[0]
	if best.distance > AcceptThreshold {
		outcome := Outcome{}
		for _, entry := range ranked {
			if len(outcome.Suggestions) >= maxSuggestions {
				break
			}
			outcome.Suggestions = append(outcome.Suggestions, cadence.StripCold(entry.record.Name))
		}
		return outcome, nil
	}

	outcome := Outcome{Found: true, Record: best.record, Distance: best.distance}
	for _, entry := range ranked[1:] {
		if entry.distance-best.distance > closeMargin {
			break
		}
		if len(outcome.Alternatives) >= maxSuggestions {
			break
		}
		outcome.Alternatives = append(outcome.Alternatives, cadence.StripCold(entry.record.Name))
	}
	return outcome, nil
}

// Distance computes the normalized token-aware distance between a query
// and a candidate name. Case-insensitive.
func Distance(query, candidate string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if query == "" || candidate == "" {
		return 1
	}
	if query == candidate {
		return 0
	}

	metric := metrics.NewJaroWinkler()
	whole := strutil.Similarity(tokenSort(query), tokenSort(candidate), metric)
	tokens := tokenAlignment(strings.Fields(query), strings.Fields(candidate), metric)

	similarity := whole
	if tokens > similarity {
		similarity = tokens
	}
	return 1 - similarity
}

// tokenAlignment scores each query token against its best candidate
// token and averages the results, so "jalin" still lines up well with
// "jalin moore" and swapped name order does not hurt.
func tokenAlignment(queryTokens, candidateTokens []string, metric *metrics.JaroWinkler) float64 {
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}
	total := 0.0
	for _, queryToken := range queryTokens {
		best := 0.0
		for _, candidateToken := range candidateTokens {
			if score := strutil.Similarity(queryToken, candidateToken, metric); score > best {
				best = score
			}
		}
		total += best
	}
	score := total / float64(len(queryTokens))

	// A single-token query matching only a fraction of a multi-token
	// name is weaker evidence than a full-name match.
	if len(queryTokens) < len(candidateTokens) {
		score *= 0.95
	}
	return score
}

func tokenSort(value string) string {
	tokens := strings.Fields(value)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func normalizeQuery(name string) string {
	query := strings.ToLower(strings.TrimSpace(name))
	query = strings.TrimSpace(strings.Trim(query, `"'`))
	for changed := true; changed; {
		changed = false
		for _, preposition := range leadingPrepositions {
			if strings.HasPrefix(query, preposition) {
				query = strings.TrimSpace(strings.TrimPrefix(query, preposition))
				changed = true
			}
		}
	}
	return query
}
