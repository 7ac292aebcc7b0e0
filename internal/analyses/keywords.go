package analyses

import (
	"sort"
	"strings"
	"unicode"
)

const (
	defaultMaxMissing = 15
	defaultMaxMatches = 30

	// Terms this frequent in the job description are treated as critical.
	highRelevanceThreshold = 3
)

// MatcherConfig tunes the lexical keyword matcher. The generic keyword list
// is injected so deployments can extend it without touching pipeline logic.
type MatcherConfig struct {
	GenericKeywords []string
	MaxMissing      int
	MaxMatches      int
}

// DefaultMatcherConfig returns the built-in matcher configuration.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		GenericKeywords: DefaultGenericKeywords(),
		MaxMissing:      defaultMaxMissing,
		MaxMatches:      defaultMaxMatches,
	}
}

// Matcher performs deterministic lexical comparison between resume text and
// a target-job corpus. It is pure: no I/O, no shared state.
type Matcher struct {
	generic    []string
	maxMissing int
	maxMatches int
}

// NewMatcher constructs a Matcher from cfg, filling zero values with defaults.
func NewMatcher(cfg MatcherConfig) *Matcher {
	generic := cfg.GenericKeywords
	if len(generic) == 0 {
		generic = DefaultGenericKeywords()
	}
	maxMissing := cfg.MaxMissing
	if maxMissing <= 0 {
		maxMissing = defaultMaxMissing
	}
	maxMatches := cfg.MaxMatches
	if maxMatches <= 0 {
		maxMatches = defaultMaxMatches
	}
	return &Matcher{
		generic:    generic,
		maxMissing: maxMissing,
		maxMatches: maxMatches,
	}
}

// Match compares resume text against the job corpus. Without a job target it
// falls back to the generic keyword list and returns no missing keywords.
// Matched keywords always have frequency >= 1 and never overlap with the
// missing list.
func (m *Matcher) Match(resumeText, jobTitle, jobDescription string) ([]KeywordMatch, []string) {
	resumeFreq := termFrequency(resumeText)

	hasTarget := trimmedNonEmpty(jobTitle) || trimmedNonEmpty(jobDescription)
	if !hasTarget {
		return m.matchGeneric(resumeFreq), nil
	}

	titleTerms := termSet(jobTitle)
	descFreq := termFrequency(jobDescription)

	corpus := make(map[string]struct{}, len(titleTerms)+len(descFreq))
	for term := range titleTerms {
		corpus[term] = struct{}{}
	}
	for term := range descFreq {
		corpus[term] = struct{}{}
	}

	matches := make([]KeywordMatch, 0, len(corpus))
	missing := make([]string, 0, len(corpus))
	for term := range corpus {
		freq := resumeFreq[term]
		if freq < 1 {
			missing = append(missing, term)
			continue
		}
		matches = append(matches, KeywordMatch{
			Keyword:   term,
			Frequency: freq,
			Relevance: relevanceFor(term, titleTerms, descFreq),
		})
	}

	sortMatches(matches)
	if len(matches) > m.maxMatches {
		matches = matches[:m.maxMatches]
	}

	sort.Slice(missing, func(i, j int) bool {
		fi, fj := descFreq[missing[i]], descFreq[missing[j]]
		if fi != fj {
			return fi > fj
		}
		return missing[i] < missing[j]
	})
	if len(missing) > m.maxMissing {
		missing = missing[:m.maxMissing]
	}

	return matches, missing
}

func (m *Matcher) matchGeneric(resumeFreq map[string]int) []KeywordMatch {
	seen := make(map[string]struct{}, len(m.generic))
	matches := make([]KeywordMatch, 0, len(m.generic))
	for _, raw := range m.generic {
		term := normalizeTerm(raw)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		freq := resumeFreq[term]
		if freq < 1 {
			continue
		}
		matches = append(matches, KeywordMatch{
			Keyword:   term,
			Frequency: freq,
			Relevance: RelevanceLow,
		})
	}
	sortMatches(matches)
	if len(matches) > m.maxMatches {
		matches = matches[:m.maxMatches]
	}
	return matches
}

// relevanceFor tiers a matched term: title terms and terms repeated at least
// three times in the description are high, other description terms medium.
func relevanceFor(term string, titleTerms map[string]struct{}, descFreq map[string]int) Relevance {
	if _, inTitle := titleTerms[term]; inTitle {
		return RelevanceHigh
	}
	if descFreq[term] >= highRelevanceThreshold {
		return RelevanceHigh
	}
	if descFreq[term] >= 1 {
		return RelevanceMedium
	}
	return RelevanceLow
}

func sortMatches(matches []KeywordMatch) {
	sort.Slice(matches, func(i, j int) bool {
		ri, rj := relevanceRank(matches[i].Relevance), relevanceRank(matches[j].Relevance)
		if ri != rj {
			return ri < rj
		}
		if matches[i].Frequency != matches[j].Frequency {
			return matches[i].Frequency > matches[j].Frequency
		}
		return matches[i].Keyword < matches[j].Keyword
	})
}

func relevanceRank(r Relevance) int {
	switch r {
	case RelevanceHigh:
		return 0
	case RelevanceMedium:
		return 1
	default:
		return 2
	}
}

// termFrequency tokenizes text into normalized terms and counts occurrences.
func termFrequency(text string) map[string]int {
	freq := make(map[string]int)
	for _, token := range tokenize(text) {
		freq[token]++
	}
	return freq
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		term := normalizeTerm(field)
		if term == "" {
			continue
		}
		if _, stop := stopwords[term]; stop {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

// normalizeTerm lowercases, strips surrounding punctuation and folds common
// plural/possessive suffixes so "engineers" and "engineer" count together.
func normalizeTerm(raw string) string {
	term := strings.ToLower(strings.TrimSpace(raw))
	term = strings.TrimFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	term = strings.TrimSuffix(term, "'s")
	if len(term) > 3 && strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss") {
		term = strings.TrimSuffix(term, "s")
	}
	if len(term) < 3 {
		return ""
	}
	return term
}

func trimmedNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"are": {}, "was": {}, "were": {}, "have": {}, "has": {}, "had": {},
	"from": {}, "into": {}, "will": {}, "would": {}, "should": {},
	"can": {}, "could": {}, "you": {}, "your": {}, "our": {}, "their": {},
	"they": {}, "them": {}, "his": {}, "her": {}, "its": {}, "who": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"about": {}, "above": {}, "after": {}, "before": {}, "between": {},
	"but": {}, "not": {}, "all": {}, "any": {}, "each": {}, "more": {},
	"most": {}, "other": {}, "some": {}, "such": {}, "than": {}, "then": {},
	"too": {}, "very": {}, "also": {}, "been": {}, "being": {}, "both": {},
	"during": {}, "through": {}, "under": {}, "over": {}, "per": {},
	"year": {}, "month": {}, "day": {}, "etc": {}, "using": {}, "use": {},
	"able": {}, "well": {}, "work": {}, "working": {}, "including": {},
	"required": {}, "requirement": {}, "preferred": {}, "must": {},
	// "plu" and "responsibilitie" are the normalized forms of "plus" and
	// "responsibilities" after suffix folding.
	"plu": {}, "strong": {}, "experience": {}, "skill": {},
	"candidate": {}, "role": {}, "position": {}, "job": {}, "company": {},
	"ability": {}, "responsibilitie": {}, "looking": {},
}
