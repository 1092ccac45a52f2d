package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
)

const htmlFixture = `<html><body>
<p>Table of Contents</p>
<b>Site and Source Energy</b><br><br>
<table border="1">
<tr><td></td><td>Total Energy [GJ]</td><td>Energy Per Total Building Area [MJ/m2]</td></tr>
<tr><td>Total Site Energy</td><td>181.73</td><td>195.51</td></tr>
<tr><td>Net Site Energy</td><td>181.73</td><td>195.51</td></tr>
</table>
<b>Comfort and Setpoint Not Met Summary</b><br><br>
<table border="1">
<tr><td></td><td>Facility [Hours]</td></tr>
<tr><td>Time Setpoint Not Met During Occupied Heating</td><td>0.00</td></tr>
</table>
<b>Comfort and Setpoint Not Met Summary</b><br><br>
<table border="1">
<tr><td></td><td>Facility [Hours]</td></tr>
<tr><td>Time Setpoint Not Met During Occupied Cooling</td><td>12.50</td></tr>
</table>
<table border="1">
<tr><td>Orphan</td></tr>
<tr><td>no heading before this one</td></tr>
</table>
</body></html>`

func writeHTMLFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eplustbl.htm")
	if err := os.WriteFile(path, []byte(htmlFixture), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadHTML_TitlesAndValues(t *testing.T) {
	recs, err := ReadHTML(writeHTMLFixture(t))
	if err != nil {
		t.Fatalf("ReadHTML() error = %v", err)
	}

	rec, ok := recs["Site and Source Energy"]
	if !ok {
		t.Fatalf("titled table missing; got keys %v", keys(recs))
	}
	if rec.NumRows() != 2 || rec.NumCols() != 3 {
		t.Fatalf("Site and Source Energy = %dx%d, want 2x3", rec.NumRows(), rec.NumCols())
	}
	// Empty header cells get positional names.
	if rec.Schema().Field(0).Name != "col0" {
		t.Errorf("first column name = %q, want col0", rec.Schema().Field(0).Name)
	}
	if rec.Schema().Field(1).Name != "Total Energy [GJ]" {
		t.Errorf("second column name = %q", rec.Schema().Field(1).Name)
	}
	first := rec.Column(0).(*array.String)
	if first.Value(0) != "Total Site Energy" {
		t.Errorf("row 0 label = %q", first.Value(0))
	}
	if got := rec.Column(1).(*array.String).Value(1); got != "181.73" {
		t.Errorf("Net Site Energy total = %q", got)
	}
}

func TestReadHTML_DuplicateTitles(t *testing.T) {
	recs, err := ReadHTML(writeHTMLFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	base, ok := recs["Comfort and Setpoint Not Met Summary"]
	if !ok {
		t.Fatal("first duplicate-titled table missing")
	}
	dup, ok := recs["Comfort and Setpoint Not Met Summary_"]
	if !ok {
		t.Fatal("second duplicate-titled table should get a _ suffix")
	}
	if got := base.Column(0).(*array.String).Value(0); got != "Time Setpoint Not Met During Occupied Heating" {
		t.Errorf("first table row = %q", got)
	}
	if got := dup.Column(0).(*array.String).Value(0); got != "Time Setpoint Not Met During Occupied Cooling" {
		t.Errorf("second table row = %q", got)
	}
}

func TestReadHTML_UntitledTable(t *testing.T) {
	recs, err := ReadHTML(writeHTMLFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := recs["untitled"]
	if !ok {
		t.Fatalf("table with no preceding heading should be keyed untitled; got %v", keys(recs))
	}
	if rec.NumRows() != 1 {
		t.Errorf("untitled rows = %d, want 1", rec.NumRows())
	}
}

func TestReadHTML_HeaderOnlyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.htm")
	doc := `<html><body><b>Empty</b><table><tr><td>OnlyHeader</td></tr></table></body></html>`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	recs, err := ReadHTML(path)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := recs["Empty"]
	if !ok {
		t.Fatal("header-only table should still be present")
	}
	if rec.NumRows() != 0 {
		t.Errorf("header-only table rows = %d, want 0", rec.NumRows())
	}
}

func TestReadHTML_MissingFile(t *testing.T) {
	if _, err := ReadHTML(filepath.Join(t.TempDir(), "absent.htm")); err == nil {
		t.Error("reading a missing artifact should fail")
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
