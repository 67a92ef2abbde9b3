// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameBrandName(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "Colgate", "Colgate", true},
		{"case and punctuation", "colgate.", "Colgate", true},
		{"hyphenation", "Coca-Cola", "CocaCola", true},
		{"spacing", "Coca Cola", "coca-cola", true},
		{"containment", "Colgate Total", "Colgate", true},
		{"one typo", "Sensodyne", "Sensodyme", true},
		{"different brands", "Colgate", "Crest", false},
		{"short names never contain", "Max", "Maxam", false},
		{"empty", "", "Colgate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameBrandName(tt.a, tt.b))
			assert.Equal(t, tt.want, SameBrandName(tt.b, tt.a), "must be symmetric")
		})
	}
}

func TestMergeNearDuplicates(t *testing.T) {
	counts := map[string]int{
		"Colgate":  5,
		"colgate.": 2,
		"Crest":    3,
	}

	merged := MergeNearDuplicates(counts)
	assert.Equal(t, map[string]int{
		"Colgate": 7,
		"Crest":   3,
	}, merged)
}

func TestMergeNearDuplicatesCanonicalIsHighestCount(t *testing.T) {
	counts := map[string]int{
		"colgate": 2,
		"Colgate": 6,
	}

	merged := MergeNearDuplicates(counts)
	assert.Equal(t, map[string]int{"Colgate": 8}, merged)
}

func TestMergeNearDuplicatesSingleEntryUntouched(t *testing.T) {
	counts := map[string]int{"Colgate": 1}
	assert.Equal(t, counts, MergeNearDuplicates(counts))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance([]rune("colgate"), []rune("colgate")))
	assert.Equal(t, 1, editDistance([]rune("colgate"), []rune("colgte")))
	assert.Equal(t, 7, editDistance([]rune("colgate"), []rune("")))
	assert.Equal(t, 3, editDistance([]rune("kitten"), []rune("sitting")))
}
