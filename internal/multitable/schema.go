package multitable

import (
	"gamestar/internal/storage"
	"gamestar/internal/transform"
)

// Table names of the warehouse. Group key and member tables are listed in groups.
const (
	TableDate       = "dim_date"
	TableSupport    = "dim_support"
	TableFact       = "fact_game"
	TablePackage    = "package"
	TableSubPackage = "sub_package"
	TableMovie      = "movie"
	TableScreenshot = "screenshot"
)

var (
	DateColumns    = []string{"date", "day", "month", "quarter", "year"}
	SupportColumns = []string{"support_id", "mac_support", "windows_support", "linux_support"}
)

// groupSpec names the key table and member table of one attribute group. The
// group id is always the last member column.
type groupSpec struct {
	Group   string
	Member  string
	Columns []string
}

func (g groupSpec) KeyColumn() string { return g.Group + "_id" }

var groups = []groupSpec{
	{Group: "language_group", Member: "language", Columns: []string{"language", "language_group_id"}},
	{Group: "developer_group", Member: "developer", Columns: []string{"name", "developer_group_id"}},
	{Group: "publisher_group", Member: "publisher", Columns: []string{"name", "publisher_group_id"}},
	{Group: "category_group", Member: "category", Columns: []string{"name", "category_group_id"}},
	{Group: "genre_group", Member: "genre", Columns: []string{"genre", "genre_group_id"}},
	{Group: "tag_group", Member: "tag", Columns: []string{"tag", "count", "tag_group_id"}},
}

// factTypes gives the portable column type of every fact_game column. Columns
// not listed are NOT NULL text.
var factTypes = map[string]storage.ColumnType{
	"id":                   storage.TypeKey,
	"price":                storage.TypeFloat,
	"required_age":         storage.TypeBigInt,
	"dlc_count":            storage.TypeBigInt,
	"achievements":         storage.TypeBigInt,
	"recommendations":      storage.TypeBigInt,
	"user_score":           storage.TypeBigInt,
	"ave_playtime_forever": storage.TypeBigInt,
	"ave_playtime_2weeks":  storage.TypeBigInt,
	"med_playtime_forever": storage.TypeBigInt,
	"med_playtime_2weeks":  storage.TypeBigInt,
	"peak_ccu":             storage.TypeBigInt,
	"metacritic_score":     storage.TypeBigInt,
	"score_rank":           storage.TypeBigInt,
	"positive_reviews":     storage.TypeBigInt,
	"negative_reviews":     storage.TypeBigInt,
	"reviewer_count":       storage.TypeBigInt,
	"release_date":         storage.TypeKey,
	"language_group_id":    storage.TypeBigInt,
	"developer_group_id":   storage.TypeBigInt,
	"publisher_group_id":   storage.TypeBigInt,
	"category_group_id":    storage.TypeBigInt,
	"genre_group_id":       storage.TypeBigInt,
	"tag_group_id":         storage.TypeBigInt,
	"support_id":           storage.TypeBigInt,
}

// factReferences maps fact_game foreign-key columns to their targets.
var factReferences = func() map[string]string {
	refs := map[string]string{
		"release_date": TableDate + "(date)",
		"support_id":   TableSupport + "(support_id)",
	}
	for _, g := range groups {
		refs[g.KeyColumn()] = g.Group + "(" + g.KeyColumn() + ")"
	}
	return refs
}()

// nullableFact lists source counts that may be absent from a record.
var nullableFact = map[string]bool{
	"required_age": true, "dlc_count": true, "achievements": true, "recommendations": true,
	"user_score": true, "ave_playtime_forever": true, "ave_playtime_2weeks": true,
	"med_playtime_forever": true, "med_playtime_2weeks": true, "peak_ccu": true,
	"metacritic_score": true, "score_rank": true, "positive_reviews": true,
	"negative_reviews": true,
}

var nullable = func() *bool { v := true; return &v }()

// Warehouse returns the destination tables in load order, qualified by schema.
func Warehouse(schema string, autoCreate bool) []storage.TableSpec {
	q := func(name string) string { return storage.Qualify(schema, name) }
	out := make([]storage.TableSpec, 0, 2*len(groups)+7)

	for _, g := range groups {
		out = append(out, storage.TableSpec{
			Name:            q(g.Group),
			AutoCreateTable: autoCreate,
			Columns:         []storage.ColumnSpec{{Name: g.KeyColumn(), Type: storage.TypeBigInt}},
			PrimaryKey:      []string{g.KeyColumn()},
		})
	}
	for _, g := range groups {
		cols := make([]storage.ColumnSpec, 0, len(g.Columns))
		for _, c := range g.Columns[:len(g.Columns)-1] {
			typ := storage.TypeKey
			if c == "count" {
				typ = storage.TypeBigInt
			}
			cols = append(cols, storage.ColumnSpec{Name: c, Type: typ})
		}
		cols = append(cols, storage.ColumnSpec{
			Name:       g.KeyColumn(),
			Type:       storage.TypeBigInt,
			References: g.Group + "(" + g.KeyColumn() + ")",
		})
		pk := []string{g.Columns[0], g.KeyColumn()}
		out = append(out, storage.TableSpec{
			Name:            q(g.Member),
			AutoCreateTable: autoCreate,
			Columns:         cols,
			PrimaryKey:      pk,
		})
	}

	out = append(out,
		storage.TableSpec{
			Name:            q(TableDate),
			AutoCreateTable: autoCreate,
			Columns: []storage.ColumnSpec{
				{Name: "date", Type: storage.TypeKey},
				{Name: "day", Type: storage.TypeInt, Nullable: nullable},
				{Name: "month", Type: storage.TypeInt, Nullable: nullable},
				{Name: "quarter", Type: storage.TypeInt, Nullable: nullable},
				{Name: "year", Type: storage.TypeInt, Nullable: nullable},
			},
			PrimaryKey: []string{"date"},
		},
		storage.TableSpec{
			Name:            q(TableSupport),
			AutoCreateTable: autoCreate,
			Columns: []storage.ColumnSpec{
				{Name: "support_id", Type: storage.TypeBigInt},
				{Name: "mac_support", Type: storage.TypeBoolean},
				{Name: "windows_support", Type: storage.TypeBoolean},
				{Name: "linux_support", Type: storage.TypeBoolean},
			},
			PrimaryKey:  []string{"support_id"},
			Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"mac_support", "windows_support", "linux_support"}}},
		},
		storage.TableSpec{
			Name:            q(TableFact),
			AutoCreateTable: autoCreate,
			Columns:         factColumns(),
			PrimaryKey:      []string{"id"},
		},
		storage.TableSpec{
			Name:            q(TablePackage),
			AutoCreateTable: autoCreate,
			Columns: []storage.ColumnSpec{
				{Name: "package_id", Type: storage.TypeBigInt},
				{Name: "game_id", Type: storage.TypeKey, References: TableFact + "(id)"},
				{Name: "title", Type: storage.TypeText},
				{Name: "description", Type: storage.TypeText},
			},
			PrimaryKey: []string{"package_id"},
		},
		storage.TableSpec{
			Name:            q(TableSubPackage),
			AutoCreateTable: autoCreate,
			Columns: []storage.ColumnSpec{
				{Name: "package_id", Type: storage.TypeBigInt, References: TablePackage + "(package_id)"},
				{Name: "text", Type: storage.TypeText},
				{Name: "description", Type: storage.TypeText},
				{Name: "price", Type: storage.TypeFloat},
			},
		},
		mediaTable(q(TableMovie), autoCreate),
		mediaTable(q(TableScreenshot), autoCreate),
	)
	return out
}

func mediaTable(name string, autoCreate bool) storage.TableSpec {
	return storage.TableSpec{
		Name:            name,
		AutoCreateTable: autoCreate,
		Columns: []storage.ColumnSpec{
			{Name: "game_id", Type: storage.TypeKey, References: TableFact + "(id)"},
			{Name: "url", Type: storage.TypeText},
		},
	}
}

func factColumns() []storage.ColumnSpec {
	cols := make([]storage.ColumnSpec, 0, len(transform.FactColumns))
	for _, name := range transform.FactColumns {
		c := storage.ColumnSpec{Name: name, Type: storage.TypeText, References: factReferences[name]}
		if t, ok := factTypes[name]; ok {
			c.Type = t
		}
		if nullableFact[name] {
			c.Nullable = nullable
		}
		cols = append(cols, c)
	}
	return cols
}
