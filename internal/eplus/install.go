// Package eplus locates EnergyPlus installations on disk and defines the
// error taxonomy shared by the tools that drive them.
package eplus

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/louisleroy5/eplusrun/internal/version"
)

// Install describes one EnergyPlus installation root.
type Install struct {
	Root    string
	Version version.Version
}

// Find returns the installation of the requested version under baseDir.
// Both the modern "EnergyPlusV9-2-0" and the older "EnergyPlus-9-2-0"
// directory naming styles are recognized.
func Find(baseDir string, v version.Version) (Install, error) {
	for _, name := range []string{
		"EnergyPlusV" + v.Dash(),
		"EnergyPlus-" + v.Dash(),
	} {
		root := filepath.Join(baseDir, name)
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return Install{Root: root, Version: v}, nil
		}
	}
	return Install{}, fmt.Errorf("EnergyPlus %s is not installed under %s", v, baseDir)
}

// Executable returns the path of the energyplus binary for this install.
func (in Install) Executable() string {
	name := "energyplus"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(in.Root, name)
}

// UpdaterDir returns the PreProcess/IDFVersionUpdater directory holding the
// per-step transition executables.
func (in Install) UpdaterDir() string {
	return filepath.Join(in.Root, "PreProcess", "IDFVersionUpdater")
}

// IDDPath resolves the format descriptor (IDD) file for the requested
// version. The install's own Energy+.idd is used when versions match;
// otherwise the versioned copies shipped in the updater directory are tried.
func (in Install) IDDPath(v version.Version) (string, error) {
	if v == in.Version {
		p := filepath.Join(in.Root, "Energy+.idd")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	p := filepath.Join(in.UpdaterDir(), fmt.Sprintf("V%s-Energy+.idd", v.Dash()))
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("no IDD for version %s under %s", v, in.Root)
}
