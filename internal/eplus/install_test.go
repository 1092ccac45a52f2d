package eplus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/louisleroy5/eplusrun/internal/version"
)

func TestFind(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"EnergyPlusV9-2-0", "EnergyPlus-8-9-0"} {
		if err := os.Mkdir(filepath.Join(base, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	in, err := Find(base, version.Version{Major: 9, Minor: 2, Patch: 0})
	if err != nil {
		t.Fatalf("Find(9-2-0) error = %v", err)
	}
	if in.Root != filepath.Join(base, "EnergyPlusV9-2-0") {
		t.Errorf("Root = %q", in.Root)
	}

	// Older installs use the dash-only naming.
	in, err = Find(base, version.Version{Major: 8, Minor: 9, Patch: 0})
	if err != nil {
		t.Fatalf("Find(8-9-0) error = %v", err)
	}
	if in.Root != filepath.Join(base, "EnergyPlus-8-9-0") {
		t.Errorf("Root = %q", in.Root)
	}

	if _, err := Find(base, version.Version{Major: 9, Minor: 1, Patch: 0}); err == nil {
		t.Error("Find of an absent version should fail")
	}
}

func TestInstallPaths(t *testing.T) {
	in := Install{Root: "/opt/EnergyPlusV9-2-0", Version: version.Version{Major: 9, Minor: 2, Patch: 0}}
	if got := in.UpdaterDir(); got != filepath.Join(in.Root, "PreProcess", "IDFVersionUpdater") {
		t.Errorf("UpdaterDir() = %q", got)
	}
	if got := filepath.Base(in.Executable()); got != "energyplus" && got != "energyplus.exe" {
		t.Errorf("Executable() basename = %q", got)
	}
}

func TestIDDPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "EnergyPlusV9-2-0")
	updater := filepath.Join(root, "PreProcess", "IDFVersionUpdater")
	if err := os.MkdirAll(updater, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Energy+.idd"), []byte("!IDD_Version 9.2.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(updater, "V9-1-0-Energy+.idd"), []byte("!IDD_Version 9.1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	in := Install{Root: root, Version: version.Version{Major: 9, Minor: 2, Patch: 0}}

	p, err := in.IDDPath(version.Version{Major: 9, Minor: 2, Patch: 0})
	if err != nil {
		t.Fatalf("IDDPath(install version) error = %v", err)
	}
	if p != filepath.Join(root, "Energy+.idd") {
		t.Errorf("IDDPath(9-2-0) = %q, want the install's own descriptor", p)
	}

	p, err = in.IDDPath(version.Version{Major: 9, Minor: 1, Patch: 0})
	if err != nil {
		t.Fatalf("IDDPath(older version) error = %v", err)
	}
	if p != filepath.Join(updater, "V9-1-0-Energy+.idd") {
		t.Errorf("IDDPath(9-1-0) = %q, want the updater copy", p)
	}

	if _, err := in.IDDPath(version.Version{Major: 8, Minor: 0, Patch: 0}); err == nil {
		t.Error("IDDPath of an unshipped version should fail")
	}
}
