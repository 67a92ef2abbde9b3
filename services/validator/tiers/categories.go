// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import "strings"

// ProductTypeMatch classifies a detected product type relative to the
// expected category.
type ProductTypeMatch int

const (
	// ProductTypeUnknown means the detected type matched no known category.
	ProductTypeUnknown ProductTypeMatch = iota
	// ProductTypeCorrect means the detected type belongs to the expected category.
	ProductTypeCorrect
	// ProductTypeMismatch means the detected type belongs to a different
	// known category. Mismatches are retained in the evidence: a brand
	// appearing under the wrong product type across many images is itself
	// a signal (multi-category brand or category error).
	ProductTypeMismatch
)

// categoryKeywords maps a category slug to the product-type keywords the
// vision and web-text models emit for it, including common transliterations
// and non-Latin forms seen in survey markets.
var categoryKeywords = map[string][]string{
	"toothpaste": {
		"toothpaste", "tooth paste", "dentifrice", "dental paste", "whitening paste",
		"pasta de dientes", "zahnpasta", "зубная паста", "паста", "معجون أسنان",
		"牙膏", "歯磨き粉", "diş macunu", "ยาสีฟัน",
	},
	"shampoo": {
		"shampoo", "hair shampoo", "champú", "shampooing", "шампунь",
		"شامبو", "洗发水", "シャンプー", "şampuan", "แชมพู",
	},
	"soft_drink": {
		"soft drink", "soda", "cola", "carbonated drink", "fizzy drink",
		"refresco", "gaseosa", "газировка", "напиток", "مشروب غازي",
		"汽水", "炭酸飲料", "gazoz",
	},
	"chocolate": {
		"chocolate", "chocolate bar", "choc", "schokolade", "шоколад",
		"شوكولاتة", "巧克力", "チョコレート", "çikolata", "ช็อกโกแลต",
	},
	"detergent": {
		"detergent", "laundry detergent", "washing powder", "detergente",
		"waschmittel", "стиральный порошок", "منظف", "洗衣粉", "洗剤", "deterjan",
	},
	"coffee": {
		"coffee", "instant coffee", "ground coffee", "café", "kaffee",
		"кофе", "قهوة", "咖啡", "コーヒー", "kahve", "กาแฟ",
	},
	"beer": {
		"beer", "lager", "ale", "cerveza", "bier", "пиво", "بيرة",
		"啤酒", "ビール", "bira", "เบียร์",
	},
	"smartphone": {
		"smartphone", "phone", "mobile phone", "cell phone", "teléfono",
		"смартфон", "телефон", "هاتف", "手机", "スマートフォン", "telefon",
	},
}

// NormalizeProductType lowercases and trims a model-reported product type
// so keyword matching is stable across model phrasings.
func NormalizeProductType(pt string) string {
	return strings.TrimSpace(strings.ToLower(pt))
}

// NormalizeCategory converts a free-form category to its slug form.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(strings.ToLower(category))
	return strings.ReplaceAll(c, " ", "_")
}

// ClassifyProductType decides whether a detected product type is correct
// or mismatched relative to the expected category. A type that matches no
// known category's keyword list is Unknown and counts toward neither tally.
func ClassifyProductType(productType, expectedCategory string) ProductTypeMatch {
	pt := NormalizeProductType(productType)
	if pt == "" {
		return ProductTypeUnknown
	}
	expected := NormalizeCategory(expectedCategory)

	if matchesCategory(pt, expected) {
		return ProductTypeCorrect
	}
	for slug := range categoryKeywords {
		if slug == expected {
			continue
		}
		if matchesCategory(pt, slug) {
			return ProductTypeMismatch
		}
	}
	return ProductTypeUnknown
}

// matchesCategory reports whether the normalized product type contains (or
// is contained by) any keyword of the category.
func matchesCategory(pt, categorySlug string) bool {
	keywords, ok := categoryKeywords[categorySlug]
	if !ok {
		// Unknown category: fall back to comparing against the slug itself
		// so categories without curated keyword lists still work.
		slugWords := strings.ReplaceAll(categorySlug, "_", " ")
		return strings.Contains(pt, slugWords) || strings.Contains(slugWords, pt)
	}
	for _, kw := range keywords {
		kwNorm := strings.ToLower(kw)
		if pt == kwNorm || strings.Contains(pt, kwNorm) {
			return true
		}
		// Reverse containment only for longer fragments ("paste" inside
		// "toothpaste"); short ones produce false hits across categories.
		if len([]rune(pt)) >= 5 && strings.Contains(kwNorm, pt) {
			return true
		}
	}
	return false
}
