package report

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	_ "modernc.org/sqlite" // SQLite driver
)

// ReadSQL opens the simulator's SQL artifact read-only and returns the
// requested tables as arrow records. With no names given, every known
// report table present in the file is read. Tables absent from the file
// are skipped, not errors.
func ReadSQL(path string, tables ...string) (map[string]arrow.Record, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening SQL artifact %s: %w", path, err)
	}
	defer db.Close()

	if len(tables) == 0 {
		tables = TableNames()
	}
	out := make(map[string]arrow.Record, len(tables))
	for _, name := range tables {
		rec, err := readTable(db, name)
		if err != nil {
			if isMissingTable(err) {
				continue
			}
			return nil, fmt.Errorf("reading table %s: %w", name, err)
		}
		out[name] = rec
	}
	return out, nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func readTable(db *sql.DB, name string) (arrow.Record, error) {
	rows, err := db.Query("SELECT * FROM " + quoteIdent(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	schema := arrowSchema(name, cols, types)
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i := range cols {
			appendValue(bldr.Field(i), schema.Field(i), *(dest[i].(*any)))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bldr.NewRecord(), nil
}

// arrowSchema maps the table's declared SQL column types onto arrow field
// types, with this table's declared date-like columns surfacing as
// timestamps.
func arrowSchema(table string, cols []string, types []*sql.ColumnType) *arrow.Schema {
	ts := Schema[table]
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		var dt arrow.DataType = arrow.BinaryTypes.String
		if _, isTime := ts.TimeColumns[col]; isTime {
			dt = arrow.FixedWidthTypes.Timestamp_s
		} else {
			switch strings.ToUpper(types[i].DatabaseTypeName()) {
			case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT":
				dt = arrow.PrimitiveTypes.Int64
			case "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL":
				dt = arrow.PrimitiveTypes.Float64
			}
		}
		fields[i] = arrow.Field{Name: col, Type: dt, Nullable: true}
	}
	md := arrow.NewMetadata([]string{"primary_key"}, []string{ts.PrimaryKey})
	return arrow.NewSchema(fields, &md)
}

func appendValue(b array.Builder, field arrow.Field, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch bld := b.(type) {
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			bld.Append(n)
		case float64:
			bld.Append(int64(n))
		default:
			bld.AppendNull()
		}
	case *array.Float64Builder:
		switch n := v.(type) {
		case float64:
			bld.Append(n)
		case int64:
			bld.Append(float64(n))
		default:
			bld.AppendNull()
		}
	case *array.TimestampBuilder:
		layout := peakLayout
		if s, ok := textValue(v); ok {
			if t, err := time.Parse(layout, s); err == nil {
				bld.Append(arrow.Timestamp(t.Unix()))
				return
			}
		}
		bld.AppendNull()
	case *array.StringBuilder:
		if s, ok := textValue(v); ok {
			bld.Append(s)
		} else {
			bld.Append(fmt.Sprintf("%v", v))
		}
	default:
		b.AppendNull()
	}
}

// textValue renders a scanned value as a string. Byte content that is not
// valid UTF-8 is recovered byte-for-byte as Latin-1 instead of failing the
// table read.
func textValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		if !utf8.ValidString(s) {
			return decodeLatin1([]byte(s)), true
		}
		return s, true
	case []byte:
		if !utf8.Valid(s) {
			return decodeLatin1(s), true
		}
		return string(s), true
	}
	return "", false
}

func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
