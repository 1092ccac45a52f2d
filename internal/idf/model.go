// Package idf holds the in-memory handle for an EnergyPlus model. A Model
// partitions its attributes into independent ones (user-settable run
// configuration) and dependent ones (derived from the model text and the
// format descriptor). Writing an independent attribute invalidates every
// dependent attribute downstream of it; dependent attributes recompute
// lazily on next read.
package idf

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/louisleroy5/eplusrun/internal/version"
)

// Independent attribute names.
const (
	FieldSource        = "source"
	FieldWeather       = "weather"
	FieldAsVersion     = "as_version"
	FieldAnnual        = "annual"
	FieldDesignDay     = "design_day"
	FieldExpandObjects = "expand_objects"
	FieldEPMacro       = "epmacro"
	FieldReadVars      = "readvars"
	FieldVerbose       = "verbose"
	FieldOutputSuffix  = "output_suffix"
	FieldKeepData      = "keep_data"
	FieldKeepDataErr   = "keep_data_err"
	FieldInclude       = "include"
)

// Dependent attribute names.
const (
	FieldFileVersion = "file_version"
	FieldIDDName     = "iddname"
	FieldIDDVersion  = "idd_version"
	FieldObjects     = "objects"
	FieldSQL         = "sql"
	FieldHTML        = "html"
)

// dependencies maps each dependent attribute to the independent (or
// upstream dependent) attributes it is derived from. The table is fixed at
// package load; reverseDeps below is its precomputed transitive inversion.
var dependencies = map[string][]string{
	FieldIDDName:     {FieldSource, FieldAsVersion},
	FieldFileVersion: {FieldSource},
	FieldIDDVersion:  {FieldIDDName, FieldSource},
	FieldObjects:     {FieldIDDName, FieldSource},
	FieldSQL:         {FieldAsVersion, FieldAnnual, FieldDesignDay, FieldWeather, FieldSource, FieldIDDName},
	FieldHTML:        {FieldAsVersion, FieldAnnual, FieldDesignDay, FieldWeather, FieldSource, FieldIDDName},
}

// reverseDeps maps each attribute to every dependent attribute that must be
// reset when it changes, transitively.
var reverseDeps = buildReverseDeps()

func buildReverseDeps() map[string][]string {
	direct := make(map[string]map[string]bool)
	for dep, sources := range dependencies {
		for _, src := range sources {
			if direct[src] == nil {
				direct[src] = make(map[string]bool)
			}
			direct[src][dep] = true
		}
	}
	// Close transitively: invalidating X invalidates everything derived
	// from any dependent of X.
	closure := func(name string) []string {
		seen := make(map[string]bool)
		stack := []string{name}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for dep := range direct[cur] {
				if !seen[dep] {
					seen[dep] = true
					stack = append(stack, dep)
				}
			}
		}
		out := make([]string, 0, len(seen))
		for dep := range dependencies {
			if seen[dep] {
				out = append(out, dep)
			}
		}
		return out
	}
	rev := make(map[string][]string)
	for src := range direct {
		rev[src] = closure(src)
	}
	return rev
}

// ReportKind selects one of the simulator's report artifact families.
type ReportKind string

const (
	ReportSQL  ReportKind = "sql"
	ReportHTML ReportKind = "html"
)

// ReportSource produces report tables for a model, typically by consulting
// the cache and falling back to a simulation run.
type ReportSource interface {
	Reports(ctx context.Context, m *Model, kind ReportKind) (map[string]arrow.Record, error)
}

// Options configures a new Model. Zero values take the original tool's
// defaults (expand objects, run EPMacro, read variables, verbose output,
// keep data, legacy output suffix).
type Options struct {
	Weather   string
	AsVersion version.Version
	Annual    bool
	DesignDay bool

	Parser  Parser
	IDDPath func(version.Version) (string, error)
	Reports ReportSource
}

// Model is a loaded simulation input handle.
type Model struct {
	// independent
	source        Source
	weather       string
	asVersion     version.Version
	annual        bool
	designDay     bool
	expandObjects bool
	epmacro       bool
	readvars      bool
	verbose       string
	outputSuffix  string
	keepData      bool
	keepDataErr   bool
	include       []string

	parser  Parser
	iddPath func(version.Version) (string, error)
	reports ReportSource

	// dependent; nil means unset, re-derived on next read
	fileVersion *version.Version
	iddName     *string
	iddVersion  *version.Version
	objects     map[string][]Object

	sql  map[string]arrow.Record
	html map[string]arrow.Record
}

// New creates a Model over src. A nil src yields a minimal model at the
// target version.
func New(src Source, opts Options) *Model {
	if src == nil {
		src = InlineText{Text: DefaultText(opts.AsVersion.Dot())}
	}
	parser := opts.Parser
	if parser == nil {
		parser = TextParser{}
	}
	return &Model{
		source:        src,
		weather:       opts.Weather,
		asVersion:     opts.AsVersion,
		annual:        opts.Annual,
		designDay:     opts.DesignDay,
		expandObjects: true,
		epmacro:       true,
		readvars:      true,
		verbose:       "v",
		outputSuffix:  "L",
		keepData:      true,
		parser:        parser,
		iddPath:       opts.IDDPath,
		reports:       opts.Reports,
	}
}

// Name returns the model's short identity.
func (m *Model) Name() string { return m.source.Name() }

// Content returns the model's full current byte content, making a loaded
// Model usable anywhere a Source is accepted.
func (m *Model) Content() ([]byte, error) { return m.source.Content() }

// Text returns the model text as a string.
func (m *Model) Text() (string, error) {
	b, err := m.source.Content()
	return string(b), err
}

// SaveAs writes the model's current text to path.
func (m *Model) SaveAs(path string) error {
	b, err := m.source.Content()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("saving model to %s: %w", path, err)
	}
	return nil
}

// invalidate resets every dependent attribute downstream of name.
func (m *Model) invalidate(name string) {
	for _, dep := range reverseDeps[name] {
		switch dep {
		case FieldFileVersion:
			m.fileVersion = nil
		case FieldIDDName:
			m.iddName = nil
		case FieldIDDVersion:
			m.iddVersion = nil
		case FieldObjects:
			m.objects = nil
		case FieldSQL:
			m.sql = nil
		case FieldHTML:
			m.html = nil
		}
	}
}

// Independent attribute accessors. Every setter funnels through invalidate
// so the dependency contract cannot be bypassed.

func (m *Model) Source() Source { return m.source }

func (m *Model) SetSource(src Source) {
	m.source = src
	m.invalidate(FieldSource)
}

func (m *Model) Weather() string { return m.weather }

func (m *Model) SetWeather(path string) {
	m.weather = path
	m.invalidate(FieldWeather)
}

func (m *Model) AsVersion() version.Version { return m.asVersion }

func (m *Model) SetAsVersion(v version.Version) {
	m.asVersion = v
	m.invalidate(FieldAsVersion)
}

func (m *Model) Annual() bool { return m.annual }

func (m *Model) SetAnnual(b bool) {
	m.annual = b
	m.invalidate(FieldAnnual)
}

func (m *Model) DesignDay() bool { return m.designDay }

func (m *Model) SetDesignDay(b bool) {
	m.designDay = b
	m.invalidate(FieldDesignDay)
}

func (m *Model) ExpandObjects() bool     { return m.expandObjects }
func (m *Model) SetExpandObjects(b bool) { m.expandObjects = b; m.invalidate(FieldExpandObjects) }

func (m *Model) EPMacro() bool     { return m.epmacro }
func (m *Model) SetEPMacro(b bool) { m.epmacro = b; m.invalidate(FieldEPMacro) }

func (m *Model) ReadVars() bool     { return m.readvars }
func (m *Model) SetReadVars(b bool) { m.readvars = b; m.invalidate(FieldReadVars) }

func (m *Model) Verbose() string     { return m.verbose }
func (m *Model) SetVerbose(v string) { m.verbose = v; m.invalidate(FieldVerbose) }

func (m *Model) OutputSuffix() string     { return m.outputSuffix }
func (m *Model) SetOutputSuffix(s string) { m.outputSuffix = s; m.invalidate(FieldOutputSuffix) }

func (m *Model) KeepData() bool     { return m.keepData }
func (m *Model) SetKeepData(b bool) { m.keepData = b; m.invalidate(FieldKeepData) }

func (m *Model) KeepDataErr() bool     { return m.keepDataErr }
func (m *Model) SetKeepDataErr(b bool) { m.keepDataErr = b; m.invalidate(FieldKeepDataErr) }

func (m *Model) Include() []string { return m.include }

func (m *Model) SetInclude(globs []string) {
	m.include = globs
	m.invalidate(FieldInclude)
}

// Set assigns an independent attribute by name. Writes to dependent
// attributes fail with DependentFieldError; unknown names fail with
// UnknownFieldError. This is the entry point for generic key=value
// overrides (e.g. from the CLI).
func (m *Model) Set(name string, value any) error {
	if _, isDependent := dependencies[name]; isDependent {
		return &DependentFieldError{Field: name}
	}
	switch name {
	case FieldWeather:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s wants a string, got %T", name, value)
		}
		m.SetWeather(s)
	case FieldAsVersion:
		switch v := value.(type) {
		case version.Version:
			m.SetAsVersion(v)
		case string:
			parsed, err := version.Parse(v)
			if err != nil {
				return err
			}
			m.SetAsVersion(parsed)
		default:
			return fmt.Errorf("%s wants a version, got %T", name, value)
		}
	case FieldAnnual, FieldDesignDay, FieldExpandObjects, FieldEPMacro,
		FieldReadVars, FieldKeepData, FieldKeepDataErr:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s wants a bool, got %T", name, value)
		}
		switch name {
		case FieldAnnual:
			m.SetAnnual(b)
		case FieldDesignDay:
			m.SetDesignDay(b)
		case FieldExpandObjects:
			m.SetExpandObjects(b)
		case FieldEPMacro:
			m.SetEPMacro(b)
		case FieldReadVars:
			m.SetReadVars(b)
		case FieldKeepData:
			m.SetKeepData(b)
		case FieldKeepDataErr:
			m.SetKeepDataErr(b)
		}
	case FieldVerbose:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s wants a string, got %T", name, value)
		}
		m.SetVerbose(s)
	case FieldOutputSuffix:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s wants a string, got %T", name, value)
		}
		m.SetOutputSuffix(s)
	case FieldSource, FieldInclude:
		return fmt.Errorf("%s cannot be set generically; use the typed setter", name)
	default:
		return &UnknownFieldError{Field: name}
	}
	return nil
}

// Unset reports whether the named dependent attribute is currently stale.
func (m *Model) Unset(name string) bool {
	switch name {
	case FieldFileVersion:
		return m.fileVersion == nil
	case FieldIDDName:
		return m.iddName == nil
	case FieldIDDVersion:
		return m.iddVersion == nil
	case FieldObjects:
		return m.objects == nil
	case FieldSQL:
		return m.sql == nil
	case FieldHTML:
		return m.html == nil
	}
	return false
}

// Dependent attribute accessors.

// FileVersion returns the version declared inside the model text.
func (m *Model) FileVersion() (version.Version, error) {
	if m.fileVersion == nil {
		text, err := m.Text()
		if err != nil {
			return version.Version{}, err
		}
		v, err := version.FromIDF(text)
		if err != nil {
			return version.Version{}, err
		}
		m.fileVersion = &v
	}
	return *m.fileVersion, nil
}

// IDDName resolves the format descriptor path for the model's target
// version, falling back to the file's own version when no target is set.
func (m *Model) IDDName() (string, error) {
	if m.iddName == nil {
		if m.iddPath == nil {
			return "", ErrNoIDD
		}
		v := m.asVersion
		if v.IsZero() {
			fv, err := m.FileVersion()
			if err != nil {
				return "", err
			}
			v = fv
		}
		p, err := m.iddPath(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoIDD, err)
		}
		m.iddName = &p
	}
	return *m.iddName, nil
}

// ensureParsed re-derives every byproduct of a parse pass. One call fills
// the object index and the IDD version together, so N dependent reads after
// one invalidation cost exactly one parse.
func (m *Model) ensureParsed() error {
	if m.objects != nil && m.iddVersion != nil {
		return nil
	}
	text, err := m.Text()
	if err != nil {
		return err
	}
	iddName, err := m.IDDName()
	if err != nil {
		return err
	}
	res, err := m.parser.Parse(text, iddName)
	if err != nil {
		return err
	}
	m.objects = res.Objects
	v := res.IDDVersion
	m.iddVersion = &v
	return nil
}

// Objects returns the parsed object index keyed by upper-cased class name.
func (m *Model) Objects() (map[string][]Object, error) {
	if err := m.ensureParsed(); err != nil {
		return nil, err
	}
	return m.objects, nil
}

// IDDVersion returns the version stamped on the resolved format descriptor.
func (m *Model) IDDVersion() (version.Version, error) {
	if err := m.ensureParsed(); err != nil {
		return version.Version{}, err
	}
	return *m.iddVersion, nil
}

// SQL returns the model's SQL report tables, triggering a cache lookup or a
// simulation run through the attached report source when unset.
func (m *Model) SQL(ctx context.Context) (map[string]arrow.Record, error) {
	if m.sql == nil {
		if m.reports == nil {
			return nil, ErrNoReportSource
		}
		tables, err := m.reports.Reports(ctx, m, ReportSQL)
		if err != nil {
			return nil, err
		}
		m.sql = tables
	}
	return m.sql, nil
}

// HTML returns the model's HTML report tables, produced like SQL.
func (m *Model) HTML(ctx context.Context) (map[string]arrow.Record, error) {
	if m.html == nil {
		if m.reports == nil {
			return nil, ErrNoReportSource
		}
		tables, err := m.reports.Reports(ctx, m, ReportHTML)
		if err != nil {
			return nil, err
		}
		m.html = tables
	}
	return m.html, nil
}
