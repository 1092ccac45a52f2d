package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/louisleroy5/eplusrun/internal/idf"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <model.idf>",
		Short: "Print report tables for a model, running the simulation if needed",
		Long: `Report resolves the model's SQL or HTML report artifact from the cache
and prints the requested tables. When no cached artifact exists the
simulation runs first, exactly once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weather, _ := cmd.Flags().GetString("weather")
			format, _ := cmd.Flags().GetString("format")
			tableFilter, _ := cmd.Flags().GetStringSlice("table")
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			m := session.Load(idf.FilePath(args[0]))
			m.SetWeather(weather)

			var tables map[string]arrow.Record
			switch format {
			case "sql":
				tables, err = m.SQL(cmd.Context())
			case "html":
				tables, err = m.HTML(cmd.Context())
			default:
				return fmt.Errorf("invalid format %q (valid: sql, html)", format)
			}
			if err != nil {
				return err
			}

			names := make([]string, 0, len(tables))
			for name := range tables {
				if len(tableFilter) > 0 && !contains(tableFilter, name) {
					continue
				}
				names = append(names, name)
			}
			sort.Strings(names)

			if jsonOut {
				out := make(map[string][]map[string]any, len(names))
				for _, name := range names {
					out[name] = recordRows(tables[name], limit)
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}
			for _, name := range names {
				rec := tables[name]
				fmt.Printf("== %s (%d rows)\n", name, rec.NumRows())
				printRecord(rec, limit)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringP("weather", "w", "", "Weather file path (required when the report must be simulated)")
	cmd.Flags().StringP("format", "f", "sql", "Report format: sql or html")
	cmd.Flags().StringSlice("table", nil, "Only print the named tables")
	cmd.Flags().Int("limit", 20, "Max rows to print per table (0 = all)")
	return cmd
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// recordRows renders up to limit rows of rec as name->value maps.
func recordRows(rec arrow.Record, limit int) []map[string]any {
	n := int(rec.NumRows())
	if limit > 0 && n > limit {
		n = limit
	}
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, int(rec.NumCols()))
		for c := 0; c < int(rec.NumCols()); c++ {
			row[rec.ColumnName(c)] = cellValue(rec.Column(c), i)
		}
		rows[i] = row
	}
	return rows
}

func printRecord(rec arrow.Record, limit int) {
	cols := make([]string, rec.NumCols())
	for c := range cols {
		cols[c] = rec.ColumnName(c)
	}
	fmt.Println("  " + strings.Join(cols, " | "))
	n := int(rec.NumRows())
	if limit > 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		vals := make([]string, rec.NumCols())
		for c := range vals {
			vals[c] = fmt.Sprintf("%v", cellValue(rec.Column(c), i))
		}
		fmt.Println("  " + strings.Join(vals, " | "))
	}
	if n < int(rec.NumRows()) {
		fmt.Printf("  ... %d more rows\n", int(rec.NumRows())-n)
	}
}

func cellValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.Timestamp:
		return a.Value(i).ToTime(arrow.Second).Format("01/02 15:04:05")
	}
	return col.ValueStr(i)
}
