package migrate

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestMigrationSlug(t *testing.T) {
	cases := map[string]string{
		"Add Order Notes":      "add_order_notes",
		"  orders -> index!! ": "orders_index",
		"cart_items-v2":        "cart_items_v2",
		"???":                  "",
	}
	for in, want := range cases {
		if got := migrationSlug(in); got != want {
			t.Fatalf("migrationSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateSQLMigrationRefusesSameVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "add sku", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "20260402093000_add_sku.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- add_sku: write the forward change here.") {
		t.Fatalf("unexpected body %q", body)
	}

	if _, err := createSQLMigration(dir, "Add SKU", now); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected collision error, got %v", err)
	}
	if _, err := createSQLMigration(dir, "!!", now); err == nil {
		t.Fatal("expected unusable name to fail")
	}
}
