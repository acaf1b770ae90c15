package domain

import (
	"time"

	"github.com/google/uuid"
)

// BundleRuleType selects how a rule decides whether an added product qualifies.
type BundleRuleType string

const (
	BundleRuleModelRange BundleRuleType = "model_range"
	BundleRuleModelStart BundleRuleType = "model_start"
	BundleRuleCategory   BundleRuleType = "category"
)

// BundleConditions holds the bounds or category name for a rule. Bounds are
// free text parsed with the same model-number heuristic as product names.
type BundleConditions struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Category string `json:"category,omitempty"`
}

// BundleRule attaches free accessories when a qualifying product is added.
type BundleRule struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Type        BundleRuleType   `json:"type" db:"type"`
	Conditions  BundleConditions `json:"conditions" db:"conditions"`
	Accessories []uuid.UUID      `json:"accessories" db:"accessories"`
	Active      bool             `json:"active" db:"active"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// NoticeLevel grades a bundle resolution notice.
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// BundleNotice explains why an accessory was not attached.
type BundleNotice struct {
	Level       NoticeLevel `json:"level"`
	RuleID      uuid.UUID   `json:"rule_id"`
	AccessoryID uuid.UUID   `json:"accessory_id"`
	Message     string      `json:"message"`
}
