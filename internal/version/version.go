// Package version models EnergyPlus version identifiers and the ordered
// sequence of versions the transition toolchain can step through.
package version

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Version is an EnergyPlus version identifier. EnergyPlus uses both a dotted
// form ("9.2.0", as written in IDF VERSION objects) and a dashed form
// ("9-2-0", as embedded in install directories and transition executable
// names). Version keeps the three components and renders either form.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse accepts "9.2.0", "9-2-0", "9.2" or "9" and returns the Version.
// Missing components default to zero.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}
	sep := "."
	if strings.Contains(s, "-") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	var v Version
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		*fields[i] = n
	}
	return v, nil
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Dash returns the "9-2-0" form used in executable and directory names.
func (v Version) Dash() string {
	return fmt.Sprintf("%d-%d-%d", v.Major, v.Minor, v.Patch)
}

// Dot returns the "9.2.0" form used in IDF VERSION objects.
func (v Version) Dot() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) String() string { return v.Dash() }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v == Version{} }

// Compare returns -1, 0 or +1 ordering v against o.
func (v Version) Compare(o Version) int {
	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{o.Major, o.Minor, o.Patch}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Chain is the ordered sequence of EnergyPlus versions the transition
// toolchain knows how to step through. Each adjacent pair (Chain[i],
// Chain[i+1]) corresponds to one Transition-V<from>-to-V<to> executable.
var Chain = []Version{
	{1, 0, 0}, {1, 0, 1}, {1, 0, 2}, {1, 0, 3},
	{1, 1, 0}, {1, 1, 1},
	{1, 2, 0}, {1, 2, 1}, {1, 2, 2}, {1, 2, 3},
	{1, 3, 0}, {1, 4, 0},
	{2, 0, 0}, {2, 1, 0}, {2, 2, 0},
	{3, 0, 0}, {3, 1, 0},
	{4, 0, 0}, {5, 0, 0}, {6, 0, 0},
	{7, 0, 0}, {7, 1, 0}, {7, 2, 0},
	{8, 0, 0}, {8, 1, 0}, {8, 2, 0}, {8, 3, 0}, {8, 4, 0},
	{8, 5, 0}, {8, 6, 0}, {8, 7, 0}, {8, 8, 0}, {8, 9, 0},
	{9, 0, 0}, {9, 1, 0}, {9, 2, 0},
}

// ChainIndex returns the position of v in Chain, or -1 if v is not a known
// transition version.
func ChainIndex(v Version) int {
	for i, c := range Chain {
		if c == v {
			return i
		}
	}
	return -1
}

var versionObjRe = regexp.MustCompile(`(?i)^\s*VERSION\s*,\s*([0-9][0-9.\-]*)\s*$`)

// FromIDF extracts the version declared by the VERSION object in raw IDF
// text. IDF comments start with "!" and run to end of line; objects are
// semicolon-terminated lists of comma-separated fields.
func FromIDF(text string) (Version, error) {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, "!"); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	for _, block := range strings.Split(sb.String(), ";") {
		m := versionObjRe.FindStringSubmatch(strings.ReplaceAll(block, "\n", " "))
		if m != nil {
			return Parse(m[1])
		}
	}
	return Version{}, fmt.Errorf("no VERSION object found in model text")
}

var installDirRe = regexp.MustCompile(`EnergyPlus[V-]?(\d+)[-.](\d+)[-.](\d+)`)

// Installed scans dir for EnergyPlus install directories and returns the
// versions found, sorted ascending.
func Installed(dir string) ([]Version, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	var found []Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := installDirRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		maj, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		pat, _ := strconv.Atoi(m[3])
		found = append(found, Version{maj, min, pat})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Less(found[j]) })
	return found, nil
}

// Latest returns the newest EnergyPlus version installed under dir.
func Latest(dir string) (Version, error) {
	installed, err := Installed(dir)
	if err != nil {
		return Version{}, err
	}
	if len(installed) == 0 {
		return Version{}, fmt.Errorf("no EnergyPlus installation found under %s", dir)
	}
	return installed[len(installed)-1], nil
}
