package bundle

import (
	"testing"

	"phone-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestModelNumber(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"iPhone 12 Pro", 12, true},
		{"iPhone 11 Pro Max", 11, true},
		{"Galaxy S23 Ultra", 23, true},
		{"iPhone", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ModelNumber(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ModelNumber(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMatches(t *testing.T) {
	rangeRule := domain.BundleRule{Type: domain.BundleRuleModelRange, Conditions: domain.BundleConditions{Start: "11", End: "13"}}
	startRule := domain.BundleRule{Type: domain.BundleRuleModelStart, Conditions: domain.BundleConditions{Start: "14"}}
	categoryRule := domain.BundleRule{Type: domain.BundleRuleCategory, Conditions: domain.BundleConditions{Category: "Celulares"}}
	badRange := domain.BundleRule{Type: domain.BundleRuleModelRange, Conditions: domain.BundleConditions{Start: "once", End: "13"}}

	iphone12 := domain.CartLine{Name: "iPhone 12 Pro", Category: "celulares"}
	iphone14 := domain.CartLine{Name: "iPhone 14", Category: "celulares"}
	charger := domain.CartLine{Name: "Cargador", Category: "accesorios"}

	tests := []struct {
		name string
		rule domain.BundleRule
		line domain.CartLine
		want bool
	}{
		{"range matches inside", rangeRule, iphone12, true},
		{"range rejects above", rangeRule, iphone14, false},
		{"start matches equal", startRule, iphone14, true},
		{"start rejects below", startRule, iphone12, false},
		{"category is case insensitive", categoryRule, iphone12, true},
		{"category rejects other", categoryRule, charger, false},
		{"no model number never matches", rangeRule, charger, false},
		{"non numeric bound never matches", badRange, iphone12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rule, tt.line); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func fixtures() (domain.Product, []domain.Product, []domain.BundleRule) {
	phone := domain.Product{ID: uuid.New(), Name: "iPhone 12 Pro", Category: "Celulares", Price: decimal.NewFromInt(900), Stock: 1, Store: "central"}
	caseAcc := domain.Product{ID: uuid.New(), Name: "Funda", Category: "Accesorios", Price: decimal.NewFromInt(20), Stock: 5, Store: "central"}
	glass := domain.Product{ID: uuid.New(), Name: "Vidrio templado", Category: "Accesorios", Price: decimal.NewFromInt(10), Stock: 0, Store: "central"}
	charger := domain.Product{ID: uuid.New(), Name: "Cargador 20W", Category: "Accesorios", Price: decimal.NewFromInt(30), Stock: 3, Store: "sucursal"}

	rules := []domain.BundleRule{
		{
			ID: uuid.New(), Name: "iPhone 11-13", Type: domain.BundleRuleModelRange, Active: true,
			Conditions:  domain.BundleConditions{Start: "11", End: "13"},
			Accessories: []uuid.UUID{caseAcc.ID, glass.ID, charger.ID},
		},
		{
			ID: uuid.New(), Name: "Celulares", Type: domain.BundleRuleCategory, Active: true,
			Conditions:  domain.BundleConditions{Category: "celulares"},
			Accessories: []uuid.UUID{caseAcc.ID},
		},
	}

	return phone, []domain.Product{phone, caseAcc, glass, charger}, rules
}

func TestResolve_StagesGiftsAndReportsSkips(t *testing.T) {
	phone, catalog, rules := fixtures()
	added := domain.NewCartLine(&phone, 1)

	lines, notices := Resolve(added, nil, catalog, rules, "central")

	if len(lines) != 1 {
		t.Fatalf("expected 1 gift line, got %d", len(lines))
	}
	gift := lines[0]
	if gift.Name != "Funda" || !gift.Price.IsZero() || gift.Quantity != 1 || !gift.Gift {
		t.Errorf("unexpected gift line: %+v", gift)
	}
	if gift.BundleRuleID == nil || *gift.BundleRuleID != rules[0].ID {
		t.Errorf("gift should be attributed to the first matching rule")
	}

	var warnings, errs int
	for _, n := range notices {
		switch n.Level {
		case domain.NoticeWarning:
			warnings++
		case domain.NoticeError:
			errs++
		}
	}
	if warnings != 1 || errs != 1 {
		t.Errorf("expected one out-of-stock warning and one store error, got %d warnings, %d errors", warnings, errs)
	}
	if !added.Price.Equal(decimal.NewFromInt(900)) {
		t.Errorf("triggering line price was modified")
	}
}

func TestResolve_InactiveRulesIgnored(t *testing.T) {
	phone, catalog, rules := fixtures()
	for i := range rules {
		rules[i].Active = false
	}

	lines, notices := Resolve(domain.NewCartLine(&phone, 1), nil, catalog, rules, "central")
	if len(lines) != 0 || len(notices) != 0 {
		t.Errorf("inactive rules should not apply, got %d lines, %d notices", len(lines), len(notices))
	}
}

// Feature: phone-pos, Property 1: Idempotent bundle attach
func TestProperty_IdempotentBundleAttach(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("adding the same product repeatedly never duplicates accessories", prop.ForAll(
		func(times int) bool {
			phone, catalog, rules := fixtures()
			var cart []domain.CartLine

			for i := 0; i < times; i++ {
				added := domain.NewCartLine(&phone, 1)
				gifts, _ := Resolve(added, cart, catalog, rules, "central")
				if !containsProduct(cart, phone.ID) {
					cart = append(cart, added)
				}
				cart = append(cart, gifts...)
			}

			seen := make(map[uuid.UUID]int)
			for _, line := range cart {
				seen[line.ProductID]++
			}
			for id, count := range seen {
				if count > 1 {
					t.Logf("FAIL: product %s appears %d times", id, count)
					return false
				}
			}
			return len(cart) == 2
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func containsProduct(lines []domain.CartLine, id uuid.UUID) bool {
	for _, l := range lines {
		if l.ProductID == id {
			return true
		}
	}
	return false
}
