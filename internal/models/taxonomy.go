package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMinLength = 10
	DescriptionMaxLength = 1000
)

// Taxonomy is the closed set of categories and their subcategories.
// Categories with an empty subcategory list accept submissions without one.
type Taxonomy map[string][]string

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"BackOffice": {
			"Reports",
			"Products",
			"CRM",
			"Stock management",
			"Employee management",
			"Promotions",
			"Billing",
			"BackOffice Others",
		},
		"POS": {
			"Hardware",
			"Order management",
			"Payments",
			"Cashier management",
			"Receipts",
			"POS Others",
		},
		"Beep": {},
	}
}

// LoadTaxonomy reads a YAML category map from path. An empty path returns
// the built-in taxonomy.
func LoadTaxonomy(path string) (Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("taxonomy file %s defines no categories", path)
	}
	return t, nil
}

func (t Taxonomy) HasCategory(category string) bool {
	_, ok := t[category]
	return ok
}

func (t Taxonomy) HasSubCategory(category, sub string) bool {
	for _, s := range t[category] {
		if s == sub {
			return true
		}
	}
	return false
}

// RequiresSubCategory reports whether submissions in category must carry a
// subcategory.
func (t Taxonomy) RequiresSubCategory(category string) bool {
	return len(t[category]) > 0
}

// ValidateSubmission checks a raw submission against length bounds and the
// taxonomy. The returned map is keyed by field name and empty when valid.
func (t Taxonomy) ValidateSubmission(title, description, category, subCategory string) map[string]string {
	errs := map[string]string{}

	title = strings.TrimSpace(title)
	switch {
	case title == "":
		errs["title"] = "Title is required"
	case len(title) < TitleMinLength:
		errs["title"] = fmt.Sprintf("Title must be at least %d characters", TitleMinLength)
	case len(title) > TitleMaxLength:
		errs["title"] = fmt.Sprintf("Title must be no more than %d characters", TitleMaxLength)
	}

	description = strings.TrimSpace(description)
	switch {
	case description == "":
		errs["description"] = "Description is required"
	case len(description) < DescriptionMinLength:
		errs["description"] = fmt.Sprintf("Description must be at least %d characters", DescriptionMinLength)
	case len(description) > DescriptionMaxLength:
		errs["description"] = fmt.Sprintf("Description must be no more than %d characters", DescriptionMaxLength)
	}

	switch {
	case category == "":
		errs["category"] = "Category is required"
	case !t.HasCategory(category):
		errs["category"] = "Unknown category"
	case t.RequiresSubCategory(category) && subCategory == "":
		errs["subCategory"] = "Sub-category is required for this category"
	case subCategory != "" && !t.HasSubCategory(category, subCategory):
		errs["subCategory"] = "Unknown sub-category"
	}

	return errs
}
