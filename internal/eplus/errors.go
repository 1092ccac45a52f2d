package eplus

import (
	"fmt"

	"github.com/louisleroy5/eplusrun/internal/version"
)

// VersionError reports a migration target incompatible with the model's
// current file version, including downgrade requests.
type VersionError struct {
	Model string
	From  version.Version
	To    version.Version
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("cannot transition %s from version %s to %s", e.Model, e.From, e.To)
}

// VersionMismatchError reports that the model's resolved format descriptor
// version does not equal the version requested for a run. Migration happens
// at load time, never implicitly at run time.
type VersionMismatchError struct {
	Model     string
	Resolved  version.Version
	Requested version.Version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s resolved to IDD version %s but the run requested %s; upgrade the model first",
		e.Model, e.Resolved, e.Requested)
}

// WeatherFileError reports a simulation request with no weather reference set.
type WeatherFileError struct {
	Model string
}

func (e *WeatherFileError) Error() string {
	return fmt.Sprintf("no weather file specified for %s; set the weather path before simulating", e.Model)
}

// ProcessError reports an external executable that exited non-zero with a
// structured error log available. It carries the command, the captured
// stderr (or error-file) text and the model identity so the underlying
// simulator complaint is visible to the user.
type ProcessError struct {
	Cmd    []string
	Stderr string
	Model  string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%v failed for %s: %s", e.Cmd, e.Model, e.Stderr)
}
