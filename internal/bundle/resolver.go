// Package bundle resolves "buy one, get an accessory free" promotions.
package bundle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"phone-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var digitRun = regexp.MustCompile(`\d+`)

// ModelNumber extracts the first run of digits from a model or product name.
// "iPhone 12 Pro" yields 12; a name without digits yields ok == false.
func ModelNumber(name string) (n int, ok bool) {
	match := digitRun.FindString(name)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// productModelNumber prefers the model field and falls back to the name.
func productModelNumber(line domain.CartLine) (int, bool) {
	if n, ok := ModelNumber(line.Model); ok {
		return n, true
	}
	return ModelNumber(line.Name)
}

// Matches reports whether a rule applies to the added line.
func Matches(rule domain.BundleRule, added domain.CartLine) bool {
	switch rule.Type {
	case domain.BundleRuleCategory:
		return rule.Conditions.Category != "" && strings.EqualFold(rule.Conditions.Category, added.Category)
	case domain.BundleRuleModelRange:
		n, ok := productModelNumber(added)
		if !ok {
			return false
		}
		start, okStart := ModelNumber(rule.Conditions.Start)
		end, okEnd := ModelNumber(rule.Conditions.End)
		if !okStart || !okEnd {
			return false
		}
		return n >= start && n <= end
	case domain.BundleRuleModelStart:
		n, ok := productModelNumber(added)
		if !ok {
			return false
		}
		start, okStart := ModelNumber(rule.Conditions.Start)
		if !okStart {
			return false
		}
		return n >= start
	default:
		return false
	}
}

// Resolve returns the gift lines to append after added joins the cart.
// Every matching rule applies. Accessories already in the cart or staged by
// an earlier rule are skipped, so repeated calls never double-add. The
// triggering line is never modified.
func Resolve(added domain.CartLine, existing []domain.CartLine, catalog []domain.Product, rules []domain.BundleRule, store string) ([]domain.CartLine, []domain.BundleNotice) {
	byID := make(map[uuid.UUID]*domain.Product, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	present := make(map[uuid.UUID]bool, len(existing)+1)
	for _, line := range existing {
		present[line.ProductID] = true
	}
	present[added.ProductID] = true

	var staged []domain.CartLine
	var notices []domain.BundleNotice

	for _, rule := range rules {
		if !rule.Active || !Matches(rule, added) {
			continue
		}
		ruleID := rule.ID

		for _, accessoryID := range rule.Accessories {
			if present[accessoryID] {
				continue
			}

			accessory, ok := byID[accessoryID]
			if !ok {
				notices = append(notices, domain.BundleNotice{
					Level:       domain.NoticeWarning,
					RuleID:      rule.ID,
					AccessoryID: accessoryID,
					Message:     "accessory not found in catalog",
				})
				continue
			}

			if accessory.Stock <= 0 {
				notices = append(notices, domain.BundleNotice{
					Level:       domain.NoticeWarning,
					RuleID:      rule.ID,
					AccessoryID: accessoryID,
					Message:     fmt.Sprintf("%s is out of stock", accessory.Name),
				})
				continue
			}

			if accessory.Store != store {
				mismatch := &domain.StoreMismatchError{ProductID: accessory.ID, Expected: store, Actual: accessory.Store}
				notices = append(notices, domain.BundleNotice{
					Level:       domain.NoticeError,
					RuleID:      rule.ID,
					AccessoryID: accessoryID,
					Message:     mismatch.Error(),
				})
				continue
			}

			line := domain.NewCartLine(accessory, 1)
			line.Price = decimal.Zero
			line.Gift = true
			line.BundleRuleID = &ruleID
			staged = append(staged, line)
			present[accessoryID] = true
		}
	}

	return staged, notices
}
