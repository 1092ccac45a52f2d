package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"golang.org/x/net/html"
)

// ReadHTML parses every titled table out of the simulator's HTML tabular
// report into a name-to-record mapping. The simulator titles each table
// with a preceding bold heading; a table with no heading gets "untitled".
// Duplicate titles are disambiguated by appending "_" so no table is ever
// silently overwritten.
func ReadHTML(path string) (map[string]arrow.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening HTML artifact %s: %w", path, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML artifact %s: %w", path, err)
	}

	out := make(map[string]arrow.Record)
	lastTitle := ""
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "b":
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					lastTitle = t
				}
				return
			case "table":
				title := lastTitle
				if title == "" {
					title = "untitled"
				}
				lastTitle = ""
				rec := tableRecord(extractRows(n))
				if rec != nil {
					key := title
					for {
						if _, dup := out[key]; !dup {
							break
						}
						key += "_"
					}
					out[key] = rec
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

// extractRows flattens a <table> node into cell text, one slice per <tr>.
func extractRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					row = append(row, strings.TrimSpace(nodeText(c)))
				}
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

// tableRecord builds an all-string record from the rows, treating the
// first row as the header. Returns nil for tables with no data rows.
func tableRecord(rows [][]string) arrow.Record {
	if len(rows) < 1 {
		return nil
	}
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}

	fields := make([]arrow.Field, width)
	seen := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		for seen[name] {
			name += "_"
		}
		seen[name] = true
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, arrow.NewSchema(fields, nil))
	defer bldr.Release()
	for _, row := range rows[1:] {
		for i := 0; i < width; i++ {
			sb := bldr.Field(i).(*array.StringBuilder)
			if i < len(row) {
				sb.Append(row[i])
			} else {
				sb.AppendNull()
			}
		}
	}
	return bldr.NewRecord()
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
