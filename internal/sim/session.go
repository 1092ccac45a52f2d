// Package sim wires the model handle, fingerprinting, the cache store, the
// version migration engine and the process orchestrator into one session.
// A Session is the report source attached to every model it loads: reading
// an unset report attribute flows back through the session's cache lookup
// and, when the artifact is absent, exactly one simulation run.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/louisleroy5/eplusrun/internal/cache"
	"github.com/louisleroy5/eplusrun/internal/config"
	"github.com/louisleroy5/eplusrun/internal/eplus"
	"github.com/louisleroy5/eplusrun/internal/fingerprint"
	"github.com/louisleroy5/eplusrun/internal/idf"
	"github.com/louisleroy5/eplusrun/internal/logging"
	"github.com/louisleroy5/eplusrun/internal/report"
	"github.com/louisleroy5/eplusrun/internal/runner"
	"github.com/louisleroy5/eplusrun/internal/transition"
	"github.com/louisleroy5/eplusrun/internal/version"
)

// lockWait bounds how long a build waits on another build of the same
// fingerprint before giving up.
const lockWait = 4 * time.Hour

// RunContext carries per-call orchestration state: the worker slot index
// for log attribution under fan-out, and an optional progress callback fed
// one simulator output line at a time.
type RunContext struct {
	Slot     int
	Progress func(line string)
}

// Session is a configured simulation environment.
type Session struct {
	Config  *config.Config
	Store   *cache.Store
	Log     *slog.Logger
	Runs    *logging.RunLogger
	Install eplus.Install
}

// NewSession resolves the EnergyPlus installation and cache store described
// by cfg.
func NewSession(cfg *config.Config, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	var v version.Version
	var err error
	if cfg.EnergyPlus.Version != "" {
		v, err = version.Parse(cfg.EnergyPlus.Version)
	} else {
		v, err = version.Latest(cfg.EnergyPlus.InstallDir)
	}
	if err != nil {
		return nil, err
	}
	install, err := eplus.Find(cfg.EnergyPlus.InstallDir, v)
	if err != nil {
		return nil, err
	}
	return &Session{
		Config:  cfg,
		Store:   &cache.Store{Root: cfg.Cache.Root, Enabled: cfg.Cache.Enabled},
		Log:     log,
		Runs:    logging.NewRunLogger(cfg.Cache.Root, cfg.Logging.Level),
		Install: install,
	}, nil
}

// Load creates a model handle over src with the session's defaults and the
// session attached as its report source.
func (s *Session) Load(src idf.Source) *idf.Model {
	m := idf.New(src, idf.Options{
		AsVersion: s.Install.Version,
		Parser:    idf.TextParser{},
		IDDPath:   s.Install.IDDPath,
		Reports:   s,
	})
	run := s.Config.Run
	m.SetAnnual(run.Annual)
	m.SetDesignDay(run.DesignDay)
	m.SetExpandObjects(run.ExpandObjects)
	m.SetEPMacro(run.EPMacro)
	m.SetReadVars(run.ReadVars)
	if run.OutputSuffix != "" {
		m.SetOutputSuffix(run.OutputSuffix)
	}
	if run.Verbose != "" {
		m.SetVerbose(run.Verbose)
	}
	m.SetKeepData(s.Config.Cache.Enabled)
	return m
}

// Upgrade migrates m to the session's target version when its file version
// lags behind. The transitioned copy lands in the model's cache directory
// and becomes the model's new source. A model already at the target is
// untouched.
func (s *Session) Upgrade(ctx context.Context, m *idf.Model) error {
	from, err := m.FileVersion()
	if err != nil {
		return err
	}
	to := m.AsVersion()
	if from == to {
		return nil
	}

	fp, err := fingerprint.Compute(m.Source(), nil)
	if err != nil {
		return err
	}
	dir, err := s.Store.Dir(fp)
	if err != nil {
		return err
	}
	srcPath := idf.Path(m.Source())
	if srcPath == "" {
		// In-memory model: write it out before transitioning.
		srcPath = filepath.Join(dir, "idf_model.idf")
		if err := m.SaveAs(srcPath); err != nil {
			return err
		}
	}
	dst := filepath.Join(dir, filepath.Base(srcPath))

	engine := &transition.Engine{UpdaterDir: s.Install.UpdaterDir(), Log: s.Log}
	if err := engine.Upgrade(ctx, srcPath, dst, to); err != nil {
		return err
	}
	s.Runs.Log(map[string]any{"event": "upgrade", "model": m.Name(), "from": from.String(), "to": to.String()})
	m.SetSource(idf.FilePath(dst))
	return nil
}

// runArgs is the canonical argument set hashed into the fingerprint and
// recorded in the cache sidecar. No-impact keys are listed too; the
// fingerprint strips them.
func (s *Session) runArgs(m *idf.Model) map[string]any {
	return map[string]any{
		"ep_version":    m.AsVersion().Dash(),
		"weather":       m.Weather(),
		"annual":        m.Annual(),
		"design_day":    m.DesignDay(),
		"epmacro":       m.EPMacro(),
		"expandobjects": m.ExpandObjects(),
		"readvars":      m.ReadVars(),
		"output_suffix": m.OutputSuffix(),
		"keep_data":     m.KeepData(),
		"keep_data_err": m.KeepDataErr(),
	}
}

// Fingerprint returns m's cache key under its current content and run
// arguments.
func (s *Session) Fingerprint(m *idf.Model) (string, error) {
	return fingerprint.Compute(m, s.runArgs(m))
}

// Simulate runs the simulator for m, blocking until it exits. With caching
// enabled, builds of the same fingerprint serialize on a per-fingerprint
// lock and a build that finds the artifacts already present skips its run.
func (s *Session) Simulate(ctx context.Context, m *idf.Model, rc RunContext) (*runner.Result, error) {
	fp, err := s.Fingerprint(m)
	if err != nil {
		return nil, err
	}

	if s.Store.Enabled {
		lock, err := s.Store.AcquireLock(fp, lockWait)
		if err != nil {
			return nil, err
		}
		defer lock.Release()

		if _, err := s.Store.Artifact(fp, cache.KindSQL); err == nil {
			s.Log.Info("cache hit, skipping simulation", "model", m.Name(), "fingerprint", fp)
			s.Runs.Log(map[string]any{"event": "cache_hit", "model": m.Name(), "fingerprint": fp})
			return &runner.Result{OutputDir: filepath.Join(s.Store.Root, fp), Persisted: true}, nil
		}
	}

	iddPath, err := m.IDDName()
	if err != nil {
		return nil, err
	}
	res, err := runner.Run(ctx, m, runner.Options{
		Exe:           s.Install.Executable(),
		Weather:       m.Weather(),
		IDD:           iddPath,
		OutputPrefix:  fp,
		OutputSuffix:  m.OutputSuffix(),
		Verbose:       m.Verbose(),
		Annual:        m.Annual(),
		DesignDay:     m.DesignDay(),
		EPMacro:       m.EPMacro(),
		ExpandObjects: m.ExpandObjects(),
		ReadVars:      m.ReadVars(),
		Include:       m.Include(),
		KeepData:      m.KeepData(),
		KeepDataErr:   m.KeepDataErr(),
		Store:         s.Store,
		Args:          s.runArgs(m),
		Slot:          rc.Slot,
		Progress:      rc.Progress,
		Log:           s.Log,
	})
	if err != nil {
		s.Runs.Log(map[string]any{"event": "run_failed", "model": m.Name(), "fingerprint": fp, "error": err.Error()})
		return nil, err
	}
	s.Runs.Log(map[string]any{
		"event": "run_complete", "model": m.Name(), "fingerprint": fp,
		"seconds": res.Duration.Seconds(), "persisted": res.Persisted, "slot": rc.Slot,
	})
	// Keep a canonical serialized copy of the model beside the artifacts.
	if res.Persisted {
		if err := m.SaveAs(filepath.Join(res.OutputDir, cache.KindModel.Filename(fp))); err != nil {
			s.Log.Warn("could not save model copy to cache", "error", err)
		}
	}
	return res, nil
}

// Reports implements idf.ReportSource: it resolves the artifact for the
// requested kind from the cache, falling back to exactly one simulation
// run when the artifact is absent, then parses it into tables.
func (s *Session) Reports(ctx context.Context, m *idf.Model, kind idf.ReportKind) (map[string]arrow.Record, error) {
	artifactKind := cache.KindSQL
	if kind == idf.ReportHTML {
		artifactKind = cache.KindHTML
	}

	fp, err := s.Fingerprint(m)
	if err != nil {
		return nil, err
	}
	path, err := s.Store.Artifact(fp, artifactKind)
	if errors.Is(err, cache.ErrArtifactNotFound) {
		res, runErr := s.Simulate(ctx, m, RunContext{})
		if runErr != nil {
			return nil, runErr
		}
		defer res.Cleanup()
		path = filepath.Join(res.OutputDir, artifactKind.Filename(fp))
	} else if err != nil {
		return nil, err
	}

	switch kind {
	case idf.ReportSQL:
		return report.ReadSQL(path)
	case idf.ReportHTML:
		return report.ReadHTML(path)
	}
	return nil, fmt.Errorf("unknown report kind %q", kind)
}
