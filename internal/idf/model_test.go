package idf

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/louisleroy5/eplusrun/internal/version"
)

// countingParser records how many parse passes a Model triggers.
type countingParser struct {
	calls int
}

func (p *countingParser) Parse(text, iddPath string) (*ParseResult, error) {
	p.calls++
	return &ParseResult{
		Objects:    map[string][]Object{"VERSION": {{Class: "VERSION", Fields: []string{"9.2"}}}},
		IDDVersion: version.Version{Major: 9, Minor: 2, Patch: 0},
	}, nil
}

// countingReports records how many report fetches a Model triggers.
type countingReports struct {
	calls int
}

func (r *countingReports) Reports(ctx context.Context, m *Model, kind ReportKind) (map[string]arrow.Record, error) {
	r.calls++
	return map[string]arrow.Record{}, nil
}

func testModel(t *testing.T, parser Parser) *Model {
	t.Helper()
	return New(InlineText{Label: "test", Text: "VERSION,\n  9.2;\n"}, Options{
		Parser:  parser,
		IDDPath: func(v version.Version) (string, error) { return "Energy+.idd", nil },
	})
}

func TestNew_Defaults(t *testing.T) {
	m := testModel(t, &countingParser{})
	if !m.ExpandObjects() || !m.EPMacro() || !m.ReadVars() {
		t.Error("expand objects, epmacro and readvars should default on")
	}
	if m.Verbose() != "v" {
		t.Errorf("Verbose() = %q, want v", m.Verbose())
	}
	if m.OutputSuffix() != "L" {
		t.Errorf("OutputSuffix() = %q, want L", m.OutputSuffix())
	}
	if !m.KeepData() {
		t.Error("KeepData should default on")
	}
	if m.Annual() || m.DesignDay() {
		t.Error("annual and design_day should default off")
	}
}

func TestNew_NilSource(t *testing.T) {
	m := New(nil, Options{AsVersion: version.Version{Major: 9, Minor: 2, Patch: 0}})
	text, err := m.Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	v, err := version.FromIDF(text)
	if err != nil {
		t.Fatalf("default text carries no VERSION object: %v", err)
	}
	if v != (version.Version{Major: 9, Minor: 2, Patch: 0}) {
		t.Errorf("default text version = %v, want 9-2-0", v)
	}
}

func TestFileVersion_Cached(t *testing.T) {
	m := New(InlineText{Text: "VERSION, 8.9;\n"}, Options{Parser: &countingParser{}})
	v, err := m.FileVersion()
	if err != nil {
		t.Fatalf("FileVersion() error = %v", err)
	}
	if v != (version.Version{Major: 8, Minor: 9, Patch: 0}) {
		t.Errorf("FileVersion() = %v, want 8-9-0", v)
	}
	if m.Unset(FieldFileVersion) {
		t.Error("file_version should be set after first read")
	}
}

func TestSetSource_InvalidatesEverything(t *testing.T) {
	parser := &countingParser{}
	m := testModel(t, parser)

	if _, err := m.Objects(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.FileVersion(); err != nil {
		t.Fatal(err)
	}

	m.SetSource(InlineText{Text: "VERSION, 9.0;\n"})

	for _, dep := range []string{FieldFileVersion, FieldIDDName, FieldIDDVersion, FieldObjects, FieldSQL, FieldHTML} {
		if !m.Unset(dep) {
			t.Errorf("%s should be unset after SetSource", dep)
		}
	}

	v, err := m.FileVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != (version.Version{Major: 9, Minor: 0, Patch: 0}) {
		t.Errorf("FileVersion() after SetSource = %v, want 9-0-0", v)
	}
}

func TestSetAsVersion_InvalidatesIDDChain(t *testing.T) {
	m := testModel(t, &countingParser{})
	if _, err := m.IDDName(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.FileVersion(); err != nil {
		t.Fatal(err)
	}

	m.SetAsVersion(version.Version{Major: 9, Minor: 1, Patch: 0})

	for _, dep := range []string{FieldIDDName, FieldIDDVersion, FieldObjects, FieldSQL, FieldHTML} {
		if !m.Unset(dep) {
			t.Errorf("%s should be unset after SetAsVersion", dep)
		}
	}
	// file_version derives from the text alone.
	if m.Unset(FieldFileVersion) {
		t.Error("file_version should survive SetAsVersion")
	}
}

func TestSetWeather_InvalidatesReportsOnly(t *testing.T) {
	parser := &countingParser{}
	m := testModel(t, parser)
	if _, err := m.Objects(); err != nil {
		t.Fatal(err)
	}

	m.SetWeather("chicago.epw")

	if m.Unset(FieldObjects) || m.Unset(FieldIDDName) || m.Unset(FieldFileVersion) {
		t.Error("weather change should not touch parse byproducts")
	}
	if !m.Unset(FieldSQL) || !m.Unset(FieldHTML) {
		t.Error("weather change should reset report tables")
	}
}

func TestEnsureParsed_OneParsePerInvalidation(t *testing.T) {
	parser := &countingParser{}
	m := testModel(t, parser)

	if _, err := m.Objects(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.IDDVersion(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Objects(); err != nil {
		t.Fatal(err)
	}
	if parser.calls != 1 {
		t.Errorf("parser ran %d times, want 1", parser.calls)
	}

	m.SetSource(InlineText{Text: "VERSION, 9.2;\n"})
	if _, err := m.IDDVersion(); err != nil {
		t.Fatal(err)
	}
	if parser.calls != 2 {
		t.Errorf("parser ran %d times after invalidation, want 2", parser.calls)
	}
}

func TestSet_DependentFieldRejected(t *testing.T) {
	m := testModel(t, &countingParser{})
	for _, name := range []string{FieldSQL, FieldHTML, FieldObjects, FieldIDDName, FieldIDDVersion, FieldFileVersion} {
		err := m.Set(name, "anything")
		var depErr *DependentFieldError
		if !errors.As(err, &depErr) {
			t.Errorf("Set(%q) error = %v, want DependentFieldError", name, err)
		}
	}
}

func TestSet_UnknownFieldRejected(t *testing.T) {
	m := testModel(t, &countingParser{})
	err := m.Set("no_such_field", true)
	var unkErr *UnknownFieldError
	if !errors.As(err, &unkErr) {
		t.Errorf("Set(no_such_field) error = %v, want UnknownFieldError", err)
	}
}

func TestSet_ByName(t *testing.T) {
	m := testModel(t, &countingParser{})

	if err := m.Set(FieldAnnual, true); err != nil {
		t.Fatal(err)
	}
	if !m.Annual() {
		t.Error("Set(annual, true) did not stick")
	}
	if err := m.Set(FieldWeather, "sf.epw"); err != nil {
		t.Fatal(err)
	}
	if m.Weather() != "sf.epw" {
		t.Error("Set(weather) did not stick")
	}
	if err := m.Set(FieldAsVersion, "9.1.0"); err != nil {
		t.Fatal(err)
	}
	if m.AsVersion() != (version.Version{Major: 9, Minor: 1, Patch: 0}) {
		t.Error("Set(as_version, string) did not parse")
	}
	if err := m.Set(FieldAnnual, "yes"); err == nil {
		t.Error("Set(annual, string) should fail")
	}
}

func TestIDDName_FallsBackToFileVersion(t *testing.T) {
	var asked version.Version
	m := New(InlineText{Text: "VERSION, 8.9;\n"}, Options{
		Parser: &countingParser{},
		IDDPath: func(v version.Version) (string, error) {
			asked = v
			return "V" + v.Dash() + "-Energy+.idd", nil
		},
	})
	name, err := m.IDDName()
	if err != nil {
		t.Fatal(err)
	}
	if asked != (version.Version{Major: 8, Minor: 9, Patch: 0}) {
		t.Errorf("IDD resolved for %v, want the file version 8-9-0", asked)
	}
	if name != "V8-9-0-Energy+.idd" {
		t.Errorf("IDDName() = %q", name)
	}
}

func TestIDDName_NoResolver(t *testing.T) {
	m := New(InlineText{Text: "VERSION, 9.2;\n"}, Options{})
	if _, err := m.IDDName(); !errors.Is(err, ErrNoIDD) {
		t.Errorf("IDDName() error = %v, want ErrNoIDD", err)
	}
}

func TestSQL_MemoizedAndInvalidated(t *testing.T) {
	reports := &countingReports{}
	m := New(InlineText{Text: "VERSION, 9.2;\n"}, Options{
		Parser:  &countingParser{},
		Reports: reports,
	})
	ctx := context.Background()

	if _, err := m.SQL(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SQL(ctx); err != nil {
		t.Fatal(err)
	}
	if reports.calls != 1 {
		t.Errorf("report source consulted %d times, want 1", reports.calls)
	}

	m.SetDesignDay(true)
	if _, err := m.SQL(ctx); err != nil {
		t.Fatal(err)
	}
	if reports.calls != 2 {
		t.Errorf("report source consulted %d times after invalidation, want 2", reports.calls)
	}
}

func TestSQL_NoReportSource(t *testing.T) {
	m := New(InlineText{Text: "VERSION, 9.2;\n"}, Options{Parser: &countingParser{}})
	if _, err := m.SQL(context.Background()); !errors.Is(err, ErrNoReportSource) {
		t.Errorf("SQL() error = %v, want ErrNoReportSource", err)
	}
	if _, err := m.HTML(context.Background()); !errors.Is(err, ErrNoReportSource) {
		t.Errorf("HTML() error = %v, want ErrNoReportSource", err)
	}
}

func TestReverseDeps_Transitive(t *testing.T) {
	// iddname depends on as_version; objects depends on iddname. Changing
	// as_version must therefore reach objects.
	deps := reverseDeps[FieldAsVersion]
	found := false
	for _, d := range deps {
		if d == FieldObjects {
			found = true
		}
	}
	if !found {
		t.Errorf("reverseDeps[as_version] = %v, want it to include objects", deps)
	}
}
