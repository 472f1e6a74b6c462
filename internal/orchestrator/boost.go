package orchestrator

import (
	"math"
	"strings"

	"github.com/ncp-run/ncp/internal/discovery"
)

const (
	baseWeightName = 0.15
	baseWeightDesc = 0.075
	synonymWeight  = 1.2
)

// applyTermFrequencyBoost implements spec §4.10.1: split query into tokens
// (dropping those under 3 chars), classify each via enhancer, accumulate a
// raw name/description boost per result, apply diminishing returns, and
// recompute confidence.
func applyTermFrequencyBoost(results []discovery.Result, query string, enhancer SearchEnhancer) []discovery.Result {
	tokens := splitQueryTokens(query)
	if len(tokens) == 0 {
		return results
	}

	boosted := make([]discovery.Result, len(results))
	for i, r := range results {
		nameLower := strings.ToLower(r.ToolName)
		descLower := strings.ToLower(r.Description)

		var rawNameBoost, rawDescBoost float64
		for _, tok := range tokens {
			class, weights := enhancer.Classify(tok)
			if strings.Contains(nameLower, tok) {
				rawNameBoost += weights.NameWeight
			}
			if strings.Contains(descLower, tok) {
				rawDescBoost += weights.DescWeight
			}

			if class == ClassAction {
				for _, syn := range enhancer.ActionSemantics(tok) {
					if strings.Contains(nameLower, syn) {
						rawNameBoost += weights.NameWeight * synonymWeight
					}
					if strings.Contains(descLower, syn) {
						rawDescBoost += weights.DescWeight * synonymWeight
					}
				}
				penalty := enhancer.IntentPenalty(tok, r.ToolName)
				rawNameBoost -= penalty
			}
		}

		finalNameBoost := diminish(rawNameBoost, baseWeightName)
		finalDescBoost := diminish(rawDescBoost, baseWeightDesc)

		r.BaseConfidence = r.BaseConfidence * (1 + finalNameBoost + finalDescBoost)
		boosted[i] = r
	}
	return boosted
}

// diminish applies spec §4.10.1's diminishing-returns curve:
// finalBoost = rawBoost * 0.8^max(0, rawBoost/baseWeight - 1).
func diminish(rawBoost, baseWeight float64) float64 {
	if rawBoost <= 0 {
		return rawBoost
	}
	exponent := rawBoost/baseWeight - 1
	if exponent < 0 {
		exponent = 0
	}
	return rawBoost * math.Pow(0.8, exponent)
}

// splitQueryTokens lowercases and splits query on whitespace, dropping
// tokens shorter than 3 characters.
func splitQueryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
