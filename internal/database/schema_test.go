package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsDir = "../../migrations"

var expectedTables = map[string]string{
	"categories":   "00001_create_categories_table.sql",
	"products":     "00002_create_products_table.sql",
	"customers":    "00003_create_customers_table.sql",
	"bundle_rules": "00004_create_bundle_rules_table.sql",
	"counters":     "00005_create_counters_table.sql",
	"reserves":     "00006_create_reserves_table.sql",
	"sales":        "00007_create_sales_table.sql",
	"settings":     "00008_create_settings_table.sql",
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		sqlFileCount++

		content := readMigration(t, file.Name())
		for _, directive := range []string{"-- +goose Up", "-- +goose Down", "-- +goose StatementBegin", "-- +goose StatementEnd"} {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing %q directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount != len(expectedTables) {
		t.Errorf("expected %d migration files, found %d", len(expectedTables), sqlFileCount)
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableGuardsStock(t *testing.T) {
	content := readMigration(t, expectedTables["products"])

	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"category VARCHAR",
		"price NUMERIC",
		"store VARCHAR",
		"imei VARCHAR",
		"version BIGINT",
	}
	for _, column := range requiredColumns {
		if !strings.Contains(content, column) {
			t.Errorf("Products table missing column definition: %s", column)
		}
	}

	if !strings.Contains(content, "CHECK (stock >= 0)") {
		t.Error("Products table must reject negative stock")
	}
}

func TestCountersAreSeededWithPrefixes(t *testing.T) {
	content := readMigration(t, expectedTables["counters"])

	for _, seed := range []string{"('sale', 'V-', 0)", "('reserve', 'R-', 0)", "('repair', 'S-', 0)", "('delivery', 'E-', 0)"} {
		if !strings.Contains(content, seed) {
			t.Errorf("counters migration missing seed %s", seed)
		}
	}
}

func TestReservesTableHasStatusConstraint(t *testing.T) {
	content := readMigration(t, expectedTables["reserves"])

	for _, status := range []string{"reserved", "completed", "cancelled"} {
		if !strings.Contains(content, "'"+status+"'") {
			t.Errorf("reserves status constraint missing %s", status)
		}
	}
}

func TestSettingsIsSingleRow(t *testing.T) {
	content := readMigration(t, expectedTables["settings"])

	if !strings.Contains(content, "CHECK (id = 1)") {
		t.Error("settings table must be constrained to a single row")
	}
}
