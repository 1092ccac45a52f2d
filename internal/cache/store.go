// Package cache persists simulation artifacts in one directory per
// fingerprint. A populated directory holds the serialized model copy, the
// simulator's output files and a JSON sidecar of the run arguments that
// produced them.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ErrArtifactNotFound reports an expected artifact missing from the cache.
// It is a fallback signal, not a failure: callers respond by running the
// simulation.
var ErrArtifactNotFound = errors.New("artifact not found in cache")

// Kind selects one artifact family inside a fingerprint directory. The
// filename suffixes follow the simulator's legacy output naming.
type Kind string

const (
	KindSQL   Kind = "sql"
	KindHTML  Kind = "html"
	KindErr   Kind = "err"
	KindModel Kind = "model"
)

// Filename returns the artifact file name for the given output prefix.
func (k Kind) Filename(prefix string) string {
	switch k {
	case KindSQL:
		return prefix + "out.sql"
	case KindHTML:
		return prefix + "tbl.htm"
	case KindErr:
		return prefix + "out.err"
	case KindModel:
		return prefix + ".idf"
	}
	return prefix + string(k)
}

// sidecarName is the run-arguments JSON written next to the artifacts.
const sidecarName = "runargs.json"

// Store is a directory-per-fingerprint artifact store. When Enabled is
// false every persistence operation is a no-op and every lookup misses.
type Store struct {
	Root    string
	Enabled bool
}

// Dir returns the directory for fp, creating it if needed. Creation is
// idempotent.
func (s *Store) Dir(fp string) (string, error) {
	dir := filepath.Join(s.Root, fp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	return dir, nil
}

// Artifact returns the path of the artifact of the given kind for fp, or
// ErrArtifactNotFound when the store is disabled or the file is absent.
func (s *Store) Artifact(fp string, kind Kind) (string, error) {
	if !s.Enabled {
		return "", ErrArtifactNotFound
	}
	path := filepath.Join(s.Root, fp, kind.Filename(fp))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s for %s: %w", kind, fp, ErrArtifactNotFound)
		}
		return "", err
	}
	return path, nil
}

// Persist atomically replaces fp's directory contents with a copy of
// srcDir and writes the run-arguments sidecar. Replace means remove then
// copy, never merge: a fresh run fully owns its fingerprint directory.
// No-op when the store is disabled.
func (s *Store) Persist(fp string, srcDir string, runArgs map[string]any) error {
	if !s.Enabled {
		return nil
	}
	dir := filepath.Join(s.Root, fp)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purging cache directory: %w", err)
	}
	if err := copyTree(srcDir, dir); err != nil {
		return fmt.Errorf("caching run artifacts: %w", err)
	}
	if runArgs != nil {
		f, err := os.Create(filepath.Join(dir, sidecarName))
		if err != nil {
			return fmt.Errorf("writing run-args sidecar: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runArgs); err != nil {
			return fmt.Errorf("encoding run-args sidecar: %w", err)
		}
	}
	return nil
}

// RunArgs reads back the run-arguments sidecar for fp.
func (s *Store) RunArgs(fp string) (map[string]any, error) {
	b, err := os.ReadFile(filepath.Join(s.Root, fp, sidecarName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run args for %s: %w", fp, ErrArtifactNotFound)
		}
		return nil, err
	}
	var args map[string]any
	if err := json.Unmarshal(b, &args); err != nil {
		return nil, fmt.Errorf("decoding run-args sidecar: %w", err)
	}
	return args, nil
}

// CopyDir replaces dst with a copy of srcDir's tree. Used to retain failed
// run directories for diagnosis.
func (s *Store) CopyDir(srcDir, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("purging %s: %w", dst, err)
	}
	return copyTree(srcDir, dst)
}

// Entry summarizes one cached fingerprint directory.
type Entry struct {
	Fingerprint string
	Files       int
	Bytes       int64
}

// Entries lists the cached fingerprints sorted by name.
func (s *Store) Entries() ([]Entry, error) {
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		e := Entry{Fingerprint: d.Name()}
		files, err := os.ReadDir(filepath.Join(s.Root, d.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			e.Files++
			e.Bytes += info.Size()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Fingerprint < entries[j].Fingerprint })
	return entries, nil
}

// Clear removes every cached fingerprint directory.
func (s *Store) Clear() error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.Root, e.Fingerprint)); err != nil {
			return fmt.Errorf("clearing %s: %w", e.Fingerprint, err)
		}
	}
	return nil
}

// copyTree copies the regular files under src into dst, recursively.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
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
