// Package runner executes the EnergyPlus simulator for one model inside an
// isolated temporary directory, streams its output and promotes the
// resulting artifacts into the cache.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisleroy5/eplusrun/internal/cache"
	"github.com/louisleroy5/eplusrun/internal/eplus"
	"github.com/louisleroy5/eplusrun/internal/idf"
)

// Options configures one simulation run. Slot identifies the worker when
// several runs are fanned out by the caller; it only affects log
// attribution, never scheduling.
type Options struct {
	Exe string

	Weather      string
	IDD          string
	OutputDir    string
	OutputPrefix string
	OutputSuffix string
	Verbose      string

	Annual        bool
	DesignDay     bool
	EPMacro       bool
	ExpandObjects bool
	ReadVars      bool

	Include []string

	KeepData    bool
	KeepDataErr bool

	Store *cache.Store
	// Args is the canonical run-argument set recorded in the cache sidecar.
	Args map[string]any

	Slot     int
	Progress func(line string)
	Log      *slog.Logger
}

// Result reports where a finished run's artifacts live. When Persisted is
// false the artifacts still sit in the temporary OutputDir; the caller must
// read what it needs and then call Cleanup.
type Result struct {
	OutputDir string
	Persisted bool
	Duration  time.Duration
	cleanup   func()
}

// Cleanup removes the run's temporary directory. Safe to call more than
// once.
func (r *Result) Cleanup() {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// Run validates preconditions, stages the model and its collaborating
// files into a fresh temporary directory, executes the simulator and, on a
// clean exit, promotes the artifacts to the cache. The call blocks until
// the subprocess exits.
func Run(ctx context.Context, m *idf.Model, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	if opts.Weather == "" {
		return nil, &eplus.WeatherFileError{Model: m.Name()}
	}
	resolved, err := m.IDDVersion()
	if err != nil {
		return nil, err
	}
	if requested := m.AsVersion(); !requested.IsZero() && resolved != requested {
		return nil, &eplus.VersionMismatchError{Model: m.Name(), Resolved: resolved, Requested: requested}
	}

	tmp, err := os.MkdirTemp("", "eplus_run_")
	if err != nil {
		return nil, fmt.Errorf("creating run workspace: %w", err)
	}
	discard := func() { os.RemoveAll(tmp) }

	modelPath, err := stage(m, tmp, opts)
	if err != nil {
		discard()
		return nil, err
	}

	args := buildArgs(staged(opts, tmp), modelPath)
	log.Info("starting simulation", "model", m.Name(), "slot", opts.Slot)
	log.Debug("simulator command", "exe", opts.Exe, "args", args)

	start := time.Now()
	if err := stream(ctx, tmp, opts, args, m.Name(), log); err != nil {
		if opts.KeepDataErr && opts.Store != nil {
			keepFailedRun(opts, tmp, log)
		}
		discard()
		return nil, err
	}
	elapsed := time.Since(start)
	log.Info("simulation complete", "model", m.Name(), "seconds", elapsed.Seconds())

	res := &Result{OutputDir: tmp, Duration: elapsed, cleanup: discard}
	if opts.KeepData && opts.Store != nil && opts.Store.Enabled {
		if err := opts.Store.Persist(opts.OutputPrefix, tmp, opts.Args); err != nil {
			discard()
			return nil, err
		}
		discard()
		dir := filepath.Join(opts.Store.Root, opts.OutputPrefix)
		res = &Result{OutputDir: dir, Persisted: true, Duration: elapsed}
	}
	return res, nil
}

// stage copies the model, weather, format descriptor and any declared
// include files into the run workspace and returns the staged model path.
func stage(m *idf.Model, tmp string, opts Options) (string, error) {
	name := m.Name()
	if !strings.HasSuffix(name, ".idf") || strings.ContainsAny(name, `/\`) {
		name = "idf_model.idf"
	}
	modelPath := filepath.Join(tmp, name)
	if err := m.SaveAs(modelPath); err != nil {
		return "", err
	}
	if err := copyInto(opts.Weather, tmp); err != nil {
		return "", fmt.Errorf("staging weather file: %w", err)
	}
	if opts.IDD != "" {
		if err := copyInto(opts.IDD, tmp); err != nil {
			return "", fmt.Errorf("staging format descriptor: %w", err)
		}
	}
	for _, glob := range opts.Include {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return "", fmt.Errorf("expanding include %q: %w", glob, err)
		}
		for _, file := range matches {
			if err := copyInto(file, tmp); err != nil {
				return "", fmt.Errorf("staging include %s: %w", file, err)
			}
		}
	}
	return modelPath, nil
}

// staged rewrites the path-valued options onto their copies inside tmp.
func staged(opts Options, tmp string) Options {
	opts.Weather = filepath.Join(tmp, filepath.Base(opts.Weather))
	if opts.IDD != "" {
		opts.IDD = filepath.Join(tmp, filepath.Base(opts.IDD))
	}
	opts.OutputDir = tmp
	return opts
}

// stream launches the simulator and forwards its combined output line by
// line to the logger and the progress callback. A non-zero exit is turned
// into a ProcessError carrying the error-log artifact when one exists;
// without one, the raw exit error escalates as-is.
func stream(ctx context.Context, tmp string, opts Options, args []string, model string, log *slog.Logger) error {
	cmd := exec.CommandContext(ctx, opts.Exe, args...)
	cmd.Dir = tmp

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	done := make(chan struct{})
	var tail []string
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			log.Debug(line, "model", model, "slot", opts.Slot)
			if opts.Progress != nil {
				opts.Progress(line)
			}
			tail = append(tail, line)
			if len(tail) > 50 {
				tail = tail[1:]
			}
		}
	}()

	runErr := cmd.Run()
	pw.Close()
	<-done

	if runErr == nil {
		return nil
	}

	errFile := filepath.Join(tmp, cache.KindErr.Filename(opts.OutputPrefix))
	if b, readErr := os.ReadFile(errFile); readErr == nil {
		return &eplus.ProcessError{
			Cmd:    append([]string{opts.Exe}, args...),
			Stderr: string(b),
			Model:  model,
		}
	}
	// No structured error log: escalate the raw process failure with the
	// captured output tail attached.
	return fmt.Errorf("energyplus failed for %s: %w\n%s", model, runErr, strings.Join(tail, "\n"))
}

// keepFailedRun preserves a failed run's workspace under the cache's
// failed/ directory for diagnosis.
func keepFailedRun(opts Options, tmp string, log *slog.Logger) {
	dst := filepath.Join(opts.Store.Root, "failed", opts.OutputPrefix)
	if err := opts.Store.CopyDir(tmp, dst); err != nil {
		log.Warn("could not keep failed run directory", "error", err)
		return
	}
	log.Info("failed run directory kept", "dir", dst)
}

func copyInto(file, dir string) error {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(dir, filepath.Base(file)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
