package analyses

import "math"

// AggregatorConfig controls how the overall score is reconciled against
// section sub-scores. Weights follow the rubric embedded in the stage-1
// prompt; the tolerance is a calibration default, not a hard constant.
type AggregatorConfig struct {
	Weights   map[Category]float64
	Tolerance int
}

// DefaultAggregatorConfig mirrors the prompt rubric: content 40%, impact 35%,
// keywords 12.5%, format 12.5%, with a 15-point tolerance.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Weights: map[Category]float64{
			CategoryContent:  0.40,
			CategoryImpact:   0.35,
			CategoryKeywords: 0.125,
			CategoryFormat:   0.125,
		},
		Tolerance: 15,
	}
}

// aggregateScores replaces a model-reported overall score that deviates from
// the section-weighted value by more than the tolerance. The model may be
// miscalibrated on its top-line number while its sub-scores are sound, so
// internal consistency wins. The ATS score is clamped but otherwise trusted.
func aggregateScores(result *StructuredAnalysis, cfg AggregatorConfig) {
	derived, ok := sectionWeightedScore(result.Sections, cfg.Weights)
	if ok {
		tolerance := cfg.Tolerance
		if tolerance <= 0 {
			tolerance = DefaultAggregatorConfig().Tolerance
		}
		if abs(result.OverallScore-derived) > tolerance {
			result.OverallScore = derived
		}
	}
	result.OverallScore = clampScore(result.OverallScore)
	result.ATSCompatibilityScore = clampScore(result.ATSCompatibilityScore)
}

// sectionWeightedScore averages section scores per category, then combines
// category averages with the configured weights. Categories absent from the
// analysis drop out and the remaining weights are renormalized.
func sectionWeightedScore(sections []Section, weights map[Category]float64) (int, bool) {
	if len(sections) == 0 || len(weights) == 0 {
		return 0, false
	}
	sums := make(map[Category]int, len(weights))
	counts := make(map[Category]int, len(weights))
	for _, section := range sections {
		if _, weighted := weights[section.Category]; !weighted {
			continue
		}
		sums[section.Category] += clampScore(section.Score)
		counts[section.Category]++
	}
	if len(counts) == 0 {
		return 0, false
	}
	var weighted, totalWeight float64
	for category, count := range counts {
		avg := float64(sums[category]) / float64(count)
		weighted += avg * weights[category]
		totalWeight += weights[category]
	}
	if totalWeight == 0 {
		return 0, false
	}
	return clampScore(int(math.Round(weighted / totalWeight))), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
