package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"phone-pos/internal/domain"
)

// BundleRuleRepository defines the interface for bundle rule data access
type BundleRuleRepository interface {
	Create(ctx context.Context, rule *domain.BundleRule) error
	ListActive(ctx context.Context) ([]domain.BundleRule, error)
}

type bundleRuleRepository struct {
	db *sql.DB
}

// NewBundleRuleRepository creates a new instance of BundleRuleRepository
func NewBundleRuleRepository(db *sql.DB) BundleRuleRepository {
	return &bundleRuleRepository{db: db}
}

// Create inserts a new bundle rule, storing its condition and accessories as JSONB
func (r *bundleRuleRepository) Create(ctx context.Context, rule *domain.BundleRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}
	accessories, err := json.Marshal(rule.Accessories)
	if err != nil {
		return fmt.Errorf("failed to encode rule accessories: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bundle_rules (id, name, type, conditions, accessories, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rule.ID, rule.Name, string(rule.Type), string(conditions), string(accessories), rule.Active, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bundle rule: %w", err)
	}

	return nil
}

// ListActive returns active rules in creation order so accessories staged
// by earlier rules win attribution.
func (r *bundleRuleRepository) ListActive(ctx context.Context) ([]domain.BundleRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, conditions, accessories, active, created_at
		FROM bundle_rules
		WHERE active = TRUE
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundle rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.BundleRule{}
	for rows.Next() {
		var (
			rule        domain.BundleRule
			ruleType    string
			conditions  []byte
			accessories []byte
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &ruleType, &conditions, &accessories, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bundle rule: %w", err)
		}
		rule.Type = domain.BundleRuleType(ruleType)
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode rule conditions: %w", err)
		}
		if err := json.Unmarshal(accessories, &rule.Accessories); err != nil {
			return nil, fmt.Errorf("failed to decode rule accessories: %w", err)
		}
		rules = append(rules, rule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bundle rules: %w", err)
	}

	return rules, nil
}
