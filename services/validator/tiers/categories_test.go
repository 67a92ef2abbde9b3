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

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "toothpaste", NormalizeCategory(" Toothpaste "))
	assert.Equal(t, "soft_drink", NormalizeCategory("Soft Drink"))
	assert.Equal(t, "soft_drink", NormalizeCategory("soft_drink"))
}

func TestClassifyProductTypeCorrect(t *testing.T) {
	tests := []struct {
		productType string
		category    string
	}{
		{"toothpaste", "toothpaste"},
		{"Whitening Toothpaste", "toothpaste"},
		{"pasta de dientes", "toothpaste"},
		{"зубная паста", "toothpaste"},
		{"soda", "soft drink"},
		{"cola", "Soft Drink"},
	}

	for _, tt := range tests {
		assert.Equal(t, ProductTypeCorrect, ClassifyProductType(tt.productType, tt.category),
			"%q should be correct for %q", tt.productType, tt.category)
	}
}

func TestClassifyProductTypeMismatch(t *testing.T) {
	tests := []struct {
		productType string
		category    string
	}{
		{"shampoo", "toothpaste"},
		{"smartphone", "toothpaste"},
		{"chocolate bar", "soft drink"},
	}

	for _, tt := range tests {
		assert.Equal(t, ProductTypeMismatch, ClassifyProductType(tt.productType, tt.category),
			"%q should mismatch %q", tt.productType, tt.category)
	}
}

func TestClassifyProductTypeUnknown(t *testing.T) {
	assert.Equal(t, ProductTypeUnknown, ClassifyProductType("", "toothpaste"))
	assert.Equal(t, ProductTypeUnknown, ClassifyProductType("garden furniture", "toothpaste"))
}

func TestClassifyProductTypeUncuratedCategoryFallsBackToSlug(t *testing.T) {
	// No keyword list for "energy drink": the slug itself matches.
	assert.Equal(t, ProductTypeCorrect, ClassifyProductType("energy drink", "Energy Drink"))
}
