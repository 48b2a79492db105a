package postgres

import (
	"strings"
	"testing"

	"gamestar/internal/storage"
)

// boolPtr is a tiny helper to avoid repeating &[]bool literals in tests.
func boolPtr(v bool) *bool { return &v }

func TestBuildCreateSQL_QualifiedTableCreatesSchema(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name:            "warehouse.dim_date",
		AutoCreateTable: true,
		Columns: []storage.ColumnSpec{
			{Name: "date", Type: storage.TypeKey},
			{Name: "day", Type: storage.TypeInt, Nullable: boolPtr(true)},
			{Name: "year", Type: storage.TypeInt, Nullable: boolPtr(true)},
		},
		PrimaryKey: []string{"date"},
	}

	schemaSQL, tableSQL, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if schemaSQL != `CREATE SCHEMA IF NOT EXISTS "warehouse";` {
		t.Fatalf("unexpected schemaSQL: %q", schemaSQL)
	}
	if !strings.HasPrefix(tableSQL, `CREATE TABLE IF NOT EXISTS "warehouse"."dim_date" (`) {
		t.Fatalf("tableSQL missing CREATE TABLE: %q", tableSQL)
	}
	for _, want := range []string{`"date" TEXT NOT NULL`, `"day" INTEGER,`, `PRIMARY KEY ("date")`} {
		if !strings.Contains(tableSQL, want) {
			t.Fatalf("tableSQL missing %q: %q", want, tableSQL)
		}
	}
}

func TestBuildCreateSQL_UnqualifiedTableHasNoSchemaSQL(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name:    "tag",
		Columns: []storage.ColumnSpec{{Name: "tag", Type: storage.TypeText}},
	}
	schemaSQL, tableSQL, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if schemaSQL != "" {
		t.Fatalf("expected no schema DDL, got %q", schemaSQL)
	}
	if tableSQL != `CREATE TABLE IF NOT EXISTS "tag" ("tag" TEXT NOT NULL);` {
		t.Fatalf("unexpected tableSQL: %q", tableSQL)
	}
}

func TestBuildCreateSQL_ReferencesFollowTableSchema(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name: "warehouse.tag",
		Columns: []storage.ColumnSpec{
			{Name: "tag", Type: storage.TypeText},
			{Name: "tag_group_id", Type: storage.TypeBigInt, References: "tag_group(tag_group_id)"},
		},
	}
	_, tableSQL, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	want := `"tag_group_id" BIGINT NOT NULL REFERENCES "warehouse"."tag_group" ("tag_group_id")`
	if !strings.Contains(tableSQL, want) {
		t.Fatalf("tableSQL missing %q: %q", want, tableSQL)
	}
}

func TestBuildCreateSQL_UniqueConstraint(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name:        "dim_support",
		Columns:     []storage.ColumnSpec{{Name: "support_id", Type: storage.TypeBigInt}, {Name: "mac_support", Type: storage.TypeBoolean}},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"mac_support"}}},
	}
	_, tableSQL, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if !strings.Contains(tableSQL, `UNIQUE ("mac_support")`) {
		t.Fatalf("tableSQL missing UNIQUE: %q", tableSQL)
	}
}

func TestBuildCreateSQL_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		spec storage.TableSpec
	}{
		{"empty name", storage.TableSpec{Columns: []storage.ColumnSpec{{Name: "a", Type: storage.TypeText}}}},
		{"no columns", storage.TableSpec{Name: "t"}},
		{"bad type", storage.TableSpec{Name: "t", Columns: []storage.ColumnSpec{{Name: "a", Type: "blob"}}}},
		{"bad reference", storage.TableSpec{Name: "t", Columns: []storage.ColumnSpec{{Name: "a", Type: storage.TypeBigInt, References: "other"}}}},
		{"bad constraint", storage.TableSpec{
			Name:        "t",
			Columns:     []storage.ColumnSpec{{Name: "a", Type: storage.TypeText}},
			Constraints: []storage.ConstraintSpec{{Kind: "check", Columns: []string{"a"}}},
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := buildCreateSQL(tc.spec); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTableIdentifier(t *testing.T) {
	t.Parallel()

	if got := tableIdentifier("warehouse.fact_game").Sanitize(); got != `"warehouse"."fact_game"` {
		t.Fatalf("qualified: %q", got)
	}
	if got := tableIdentifier("fact_game").Sanitize(); got != `"fact_game"` {
		t.Fatalf("unqualified: %q", got)
	}
}
