// Package transition steps a model file forward through EnergyPlus
// versions by chaining the per-step executables shipped in the install's
// IDFVersionUpdater directory.
package transition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/louisleroy5/eplusrun/internal/eplus"
	"github.com/louisleroy5/eplusrun/internal/version"
)

// Step is one adjacent version migration and the executable that performs
// it.
type Step struct {
	From version.Version
	To   version.Version
	Exe  string
}

// Name returns the executable's conventional basename for this step.
func (s Step) Name() string {
	return fmt.Sprintf("Transition-V%s-to-V%s", s.From.Dash(), s.To.Dash())
}

// Engine drives the transition toolchain found in UpdaterDir.
type Engine struct {
	UpdaterDir string
	Log        *slog.Logger
}

var stepExeRe = regexp.MustCompile(`^Transition-V(\d+-\d+-\d+)-to-V(\d+-\d+-\d+)(?:\.exe)?$`)

// discover maps each step's source version to its executable path.
func (e *Engine) discover() (map[version.Version]Step, error) {
	entries, err := os.ReadDir(e.UpdaterDir)
	if err != nil {
		return nil, fmt.Errorf("scanning updater directory %s: %w", e.UpdaterDir, err)
	}
	steps := make(map[version.Version]Step)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := stepExeRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		from, err := version.Parse(m[1])
		if err != nil {
			continue
		}
		to, err := version.Parse(m[2])
		if err != nil {
			continue
		}
		steps[from] = Step{From: from, To: to, Exe: filepath.Join(e.UpdaterDir, entry.Name())}
	}
	return steps, nil
}

// Path returns the ordered list of adjacent steps carrying a model from
// version `from` up to `to`. Equal versions yield an empty path; a
// downgrade yields a VersionError; a gap in the installed executables
// yields a ProcessError naming the exact missing step.
func (e *Engine) Path(from, to version.Version) ([]Step, error) {
	switch cmp := from.Compare(to); {
	case cmp == 0:
		return nil, nil
	case cmp > 0:
		return nil, &eplus.VersionError{From: from, To: to}
	}
	fi, ti := version.ChainIndex(from), version.ChainIndex(to)
	if fi < 0 || ti < 0 {
		return nil, &eplus.VersionError{From: from, To: to}
	}

	installed, err := e.discover()
	if err != nil {
		return nil, err
	}
	var path []Step
	for i := fi; i < ti; i++ {
		want := Step{From: version.Chain[i], To: version.Chain[i+1]}
		step, ok := installed[want.From]
		if !ok {
			exe := want.Name()
			if runtime.GOOS == "windows" {
				exe += ".exe"
			}
			return nil, &eplus.ProcessError{
				Cmd:    []string{filepath.Join(e.UpdaterDir, exe)},
				Stderr: fmt.Sprintf("migration to %s needs the missing step executable %s", to, want.Name()),
			}
		}
		path = append(path, step)
	}
	return path, nil
}

// Upgrade migrates the model file at src from its current version to the
// target, writing the transitioned file to dst (which may equal src to
// overwrite in place). Each invocation works inside its own temporary
// directory so parallel migrations of different models never collide.
// A no-op (already at target) copies src to dst unchanged.
func (e *Engine) Upgrade(ctx context.Context, src, dst string, to version.Version) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading model for transition: %w", err)
	}
	from, err := version.FromIDF(string(raw))
	if err != nil {
		return fmt.Errorf("detecting model version: %w", err)
	}
	steps, err := e.Path(from, to)
	if err != nil {
		if ve, ok := err.(*eplus.VersionError); ok {
			ve.Model = filepath.Base(src)
		}
		return err
	}
	if len(steps) == 0 {
		if dst == src {
			return nil
		}
		return copyFile(src, dst)
	}

	tmp, err := os.MkdirTemp("", "transition_run_")
	if err != nil {
		return fmt.Errorf("creating transition workspace: %w", err)
	}
	defer os.RemoveAll(tmp)

	work := filepath.Join(tmp, filepath.Base(src))
	if err := copyFile(src, work); err != nil {
		return fmt.Errorf("staging model for transition: %w", err)
	}

	for _, step := range steps {
		if err := e.runStep(ctx, step, work); err != nil {
			return err
		}
		// Each step writes <name>.idfnew beside its input; that file is
		// the next step's input.
		next, err := findNew(tmp)
		if err != nil {
			return &eplus.ProcessError{
				Cmd:    []string{step.Exe, work},
				Stderr: fmt.Sprintf("step %s produced no .idfnew output", step.Name()),
				Model:  filepath.Base(src),
			}
		}
		if err := os.Rename(next, work); err != nil {
			return fmt.Errorf("advancing transition output: %w", err)
		}
	}
	return copyFile(work, dst)
}

func (e *Engine) runStep(ctx context.Context, step Step, file string) error {
	cmd := exec.CommandContext(ctx, step.Exe, file)
	cmd.Dir = e.UpdaterDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &eplus.ProcessError{
			Cmd:    []string{step.Exe, file},
			Stderr: out.String(),
			Model:  filepath.Base(file),
		}
	}
	if e.Log != nil {
		e.Log.Debug("transition step complete", "step", step.Name(), "output", out.String())
	}
	return nil
}

// findNew returns the single *.idfnew file under dir.
func findNew(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.idfnew"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no .idfnew output in %s", dir)
	}
	return matches[0], nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
