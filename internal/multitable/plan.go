package multitable

import (
	"gamestar/internal/dimension"
	"gamestar/internal/source"
	"gamestar/internal/storage"
	"gamestar/internal/transform"
)

// BuildPlan turns a finished session into load tasks, qualified by schema, in
// dependency order: group key tables, member tables, dim_date, dim_support,
// fact_game, then the child tables.
func BuildPlan(s *transform.Session, schema string) []LoadTask {
	q := func(name string) string { return storage.Qualify(schema, name) }

	counts := []int{
		s.Languages.Len(), s.Developers.Len(), s.Publishers.Len(),
		s.Categories.Len(), s.Genres.Len(), s.Tags.Len(),
	}
	members := [][][]any{
		stringMembers(s.Languages.Members()),
		stringMembers(s.Developers.Members()),
		stringMembers(s.Publishers.Members()),
		stringMembers(s.Categories.Members()),
		stringMembers(s.Genres.Members()),
		tagMembers(s.Tags.Members()),
	}

	tasks := make([]LoadTask, 0, 2*len(groups)+7)
	for i, g := range groups {
		tasks = append(tasks, LoadTask{
			Table:    q(g.Group),
			Columns:  []string{g.KeyColumn()},
			Strategy: StrategySequential,
			Count:    counts[i],
		})
	}
	for i, g := range groups {
		tasks = append(tasks, LoadTask{
			Table:    q(g.Member),
			Columns:  g.Columns,
			Strategy: StrategyRows,
			Rows:     members[i],
		})
	}

	tasks = append(tasks,
		LoadTask{Table: q(TableDate), Columns: DateColumns, Strategy: StrategyKeyed, Rows: dateRows(s.Dates.Entries())},
		LoadTask{Table: q(TableSupport), Columns: SupportColumns, Strategy: StrategyKeyed, Rows: supportRows(s.Support.Entries())},
		LoadTask{Table: q(TableFact), Columns: transform.FactColumns, Strategy: StrategyRows, Rows: valuesOf(s.Facts())},
		LoadTask{Table: q(TablePackage), Columns: transform.PackageColumns, Strategy: StrategyRows, Rows: valuesOf(s.Packages())},
		LoadTask{Table: q(TableSubPackage), Columns: transform.SubPackageColumns, Strategy: StrategyRows, Rows: valuesOf(s.SubPackages())},
		LoadTask{Table: q(TableMovie), Columns: transform.MediaColumns, Strategy: StrategyRows, Rows: valuesOf(s.Movies())},
		LoadTask{Table: q(TableScreenshot), Columns: transform.MediaColumns, Strategy: StrategyRows, Rows: valuesOf(s.Screenshots())},
	)
	return tasks
}

type valuer interface{ Values() []any }

func valuesOf[T valuer](in []T) [][]any {
	out := make([][]any, len(in))
	for i, v := range in {
		out[i] = v.Values()
	}
	return out
}

func stringMembers(ms []dimension.Member[string]) [][]any {
	out := make([][]any, len(ms))
	for i, m := range ms {
		out[i] = []any{m.Value, m.GroupID}
	}
	return out
}

func tagMembers(ms []dimension.Member[source.Tag]) [][]any {
	out := make([][]any, len(ms))
	for i, m := range ms {
		out[i] = []any{m.Value.Name, m.Value.Count, m.GroupID}
	}
	return out
}

// dateRows leaves unknown parts NULL: day for month-only dates, everything
// but the key for the unknown sentinel.
func dateRows(entries []dimension.DateEntry) [][]any {
	out := make([][]any, len(entries))
	for i, e := range entries {
		row := []any{e.Date.Key(), nil, nil, nil, nil}
		if e.Date.Known() {
			if e.Date.HasDay() {
				row[1] = e.Day
			}
			row[2], row[3], row[4] = e.Month, e.Quarter, e.Year
		}
		out[i] = row
	}
	return out
}

func supportRows(entries []dimension.SupportEntry) [][]any {
	out := make([][]any, len(entries))
	for i, e := range entries {
		out[i] = []any{e.ID, e.Mac, e.Windows, e.Linux}
	}
	return out
}
