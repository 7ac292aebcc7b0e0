package analyses

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"resume-insight/internal/llm"
	"resume-insight/internal/shared/metrics"
)

const repairPromptHeader = `Your previous response was not valid JSON matching the required schema. Return ONLY the corrected JSON object, with no surrounding prose, no markdown fences and no explanation. Previous response:
`

// parseStructured coerces a raw model response into a StructuredAnalysis.
// It tries a direct parse first, then extracts the outermost JSON object
// from surrounding prose. Numeric drift is clamped, never rejected.
func parseStructured(raw string) (StructuredAnalysis, error) {
	var result StructuredAnalysis
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return result, fmt.Errorf("%w: empty response", ErrFormat)
	}

	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		normalizeAnalysis(&result)
		return result, validateShape(result)
	}

	payload, ok := extractJSONObject(trimmed)
	if !ok {
		return result, fmt.Errorf("%w: no JSON object found", ErrFormat)
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	normalizeAnalysis(&result)
	return result, validateShape(result)
}

// parseWithRepair parses raw and, on failure, issues one corrective re-prompt
// to the same tier before giving up with ErrFormat. Provider errors during
// the re-prompt surface as-is so the caller's retry policy stays authoritative.
func parseWithRepair(ctx context.Context, client llm.Client, tier llm.Tier, raw string) (StructuredAnalysis, error) {
	result, err := parseStructured(raw)
	if err == nil {
		return result, nil
	}
	log.Printf("analysis parse tier=%s attempt=1 error=%s", tier, sanitizeError(err))
	metrics.IncRepairReprompt()

	repaired, invokeErr := client.Invoke(ctx, repairPromptHeader+raw, tier)
	if invokeErr != nil {
		return StructuredAnalysis{}, invokeErr
	}
	result, err = parseStructured(repaired)
	if err != nil {
		log.Printf("analysis parse tier=%s attempt=2 error=%s", tier, sanitizeError(err))
		return StructuredAnalysis{}, err
	}
	return result, nil
}

// extractJSONObject locates the outermost well-formed JSON object embedded in
// text, skipping markdown fences and leading prose. String contents are
// honored so braces inside values do not confuse the scan.
func extractJSONObject(text string) (string, bool) {
	if fenced := stripCodeFence(text); fenced != "" {
		text = fenced
	}
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

func stripCodeFence(text string) string {
	idx := strings.Index(text, "```")
	if idx == -1 {
		return ""
	}
	rest := text[idx+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 && len(strings.TrimSpace(rest[:nl])) <= 8 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// validateShape enforces the structural minimum the pipeline cannot repair.
func validateShape(result StructuredAnalysis) error {
	if len(result.Sections) == 0 {
		return fmt.Errorf("%w: sections must be non-empty", ErrFormat)
	}
	for _, section := range result.Sections {
		if strings.TrimSpace(section.Name) == "" {
			return fmt.Errorf("%w: section name is required", ErrFormat)
		}
	}
	return nil
}

// normalizeAnalysis clamps scores, deduplicates keywords, drops zero-frequency
// matches, removes keyword/missing overlap and orders recommendations by
// priority. All of this is silent normalization, not failure.
func normalizeAnalysis(result *StructuredAnalysis) {
	result.OverallScore = clampScore(result.OverallScore)
	result.ATSCompatibilityScore = clampScore(result.ATSCompatibilityScore)
	if result.MatchPercentage != nil {
		v := clampScore(*result.MatchPercentage)
		result.MatchPercentage = &v
	}
	if result.HirabilityScore != nil {
		v := clampScore(*result.HirabilityScore)
		result.HirabilityScore = &v
	}

	sections := result.Sections[:0]
	for _, section := range result.Sections {
		section.Score = clampScore(section.Score)
		if !section.Category.Known() {
			section.Category = CategoryContent
		}
		sections = append(sections, section)
	}
	result.Sections = sections

	result.KeywordMatches = dedupeMatches(result.KeywordMatches)
	result.MissingKeywords = subtractMatched(result.MissingKeywords, result.KeywordMatches)
	result.Recommendations = normalizeRecommendations(result.Recommendations)

	result.Strengths = ensureStringSlice(result.Strengths)
	result.Improvements = ensureStringSlice(result.Improvements)
	result.MissingKeywords = ensureStringSlice(result.MissingKeywords)
}

func dedupeMatches(matches []KeywordMatch) []KeywordMatch {
	seen := make(map[string]int, len(matches))
	out := make([]KeywordMatch, 0, len(matches))
	for _, match := range matches {
		key := strings.ToLower(strings.TrimSpace(match.Keyword))
		if key == "" || match.Frequency < 1 {
			continue
		}
		switch match.Relevance {
		case RelevanceHigh, RelevanceMedium, RelevanceLow:
		default:
			match.Relevance = RelevanceLow
		}
		if idx, dup := seen[key]; dup {
			if match.Frequency > out[idx].Frequency {
				out[idx].Frequency = match.Frequency
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, match)
	}
	return out
}

func subtractMatched(missing []string, matches []KeywordMatch) []string {
	matched := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		matched[strings.ToLower(strings.TrimSpace(match.Keyword))] = struct{}{}
	}
	seen := make(map[string]struct{}, len(missing))
	out := make([]string, 0, len(missing))
	for _, keyword := range missing {
		key := strings.ToLower(strings.TrimSpace(keyword))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if _, hit := matched[key]; hit {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, keyword)
	}
	return out
}

func normalizeRecommendations(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, rec := range recs {
		switch rec.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			rec.Priority = PriorityMedium
		}
		if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.Description) == "" {
			continue
		}
		out = append(out, rec)
	}
	// Stable sort keeps the model's within-priority ordering.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && priorityRank(out[j].Priority) < priorityRank(out[j-1].Priority); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func ensureStringSlice(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
