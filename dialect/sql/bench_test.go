package sql

import (
	"testing"

	"github.com/syssam/record/dialect"
)

var benchDialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres}

func BenchmarkBuilderInsert(b *testing.B) {
	columns := []string{"age", "created_at", "first_name", "last_name", "nickname", "spouse_id", "updated_at"}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			builder, _ := Dialect(d)
			b.ReportAllocs()
			for b.Loop() {
				builder.Rebind(builder.Insert("users", columns))
			}
		})
	}
}

func BenchmarkBuilderSelect(b *testing.B) {
	opts := dialect.SelectOptions{SortField: "id", Limit: 10, Offset: 20}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			builder, _ := Dialect(d)
			b.ReportAllocs()
			for b.Loop() {
				where, _, _ := builder.EqualityClause([]string{"role_id", "deleted_at"}, []any{1, nil})
				builder.Rebind(builder.Select("users", where, opts))
			}
		})
	}
}

func BenchmarkBuilderUpdate(b *testing.B) {
	columns := []string{"email", "first_name", "last_name", "role_id"}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			builder, _ := Dialect(d)
			b.ReportAllocs()
			for b.Loop() {
				builder.Rebind(builder.Update("users", columns, "id"))
			}
		})
	}
}

func BenchmarkBuilderEscapeLiteral(b *testing.B) {
	values := []any{nil, true, 42, 3.5, "O'Reilly", []byte(`C:\path`)}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			builder, _ := Dialect(d)
			b.ReportAllocs()
			for b.Loop() {
				for _, v := range values {
					builder.EscapeLiteral(v)
				}
			}
		})
	}
}

func BenchmarkSplit(b *testing.B) {
	row := dialect.Row{"email": "a@example.com", "first_name": "Ann", "last_name": "Lee", "role_id": 1, "id": 7}
	b.ReportAllocs()
	for b.Loop() {
		split(row)
	}
}
