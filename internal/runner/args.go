package runner

// buildArgs assembles the simulator command line. The flag order is fixed:
// boolean toggles become presence-only tokens, valued flags become
// name+value pairs, and the model file path always comes last.
func buildArgs(opts Options, modelPath string) []string {
	var args []string
	bools := []struct {
		flag string
		on   bool
	}{
		{"--annual", opts.Annual},
		{"--design-day", opts.DesignDay},
		{"--epmacro", opts.EPMacro},
		{"--expandobjects", opts.ExpandObjects},
		{"--readvars", opts.ReadVars},
	}
	for _, b := range bools {
		if b.on {
			args = append(args, b.flag)
		}
	}
	valued := []struct {
		flag  string
		value string
	}{
		{"--output-prefix", opts.OutputPrefix},
		{"--output-suffix", opts.OutputSuffix},
		{"--verbose", opts.Verbose},
		{"--weather", opts.Weather},
		{"--idd", opts.IDD},
		{"--output-directory", opts.OutputDir},
	}
	for _, v := range valued {
		if v.value != "" {
			args = append(args, v.flag, v.value)
		}
	}
	return append(args, modelPath)
}
