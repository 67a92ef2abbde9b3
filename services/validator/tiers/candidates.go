// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"sort"
	"strings"
	"unicode"
)

// mergeSimilarityThreshold: normalized edit-distance ratio above which two
// candidate names are considered the same brand ("Colgate" / "colgate.",
// "Coca-Cola" / "CocaCola").
const mergeSimilarityThreshold = 0.85

// MergeNearDuplicates collapses near-duplicate candidate names in a count
// map. The surviving spelling is the one with the higher count (ties break
// toward the longer, usually fuller, name). Kept separate from the
// decision logic so the merging rule is testable on its own.
func MergeNearDuplicates(counts map[string]int) map[string]int {
	if len(counts) < 2 {
		return counts
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	// Highest count first so canonical names absorb their variants.
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	merged := make(map[string]int, len(counts))
	canonical := make([]string, 0, len(names))
	for _, name := range names {
		absorbed := false
		for _, canon := range canonical {
			if SameBrandName(canon, name) {
				merged[canon] += counts[name]
				absorbed = true
				break
			}
		}
		if !absorbed {
			canonical = append(canonical, name)
			merged[name] = counts[name]
		}
	}
	return merged
}

// SameBrandName reports whether two candidate names are spellings of the
// same brand: equal after normalization, one containing the other, or
// within the edit-distance ratio threshold.
func SameBrandName(a, b string) bool {
	na, nb := normalizeBrandName(a), normalizeBrandName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) >= 4 && len(nb) >= 4 &&
		(strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return true
	}
	return similarityRatio(na, nb) >= mergeSimilarityThreshold
}

// normalizeBrandName lowercases and strips spaces and punctuation so
// hyphenation and casing variants compare equal.
func normalizeBrandName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// similarityRatio is 1 - editDistance/maxLen over runes.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(editDistance(ra, rb))/float64(maxLen)
}

// editDistance is the Levenshtein distance with a two-row table.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
