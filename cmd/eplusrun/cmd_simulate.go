package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/louisleroy5/eplusrun/internal/idf"
	"github.com/louisleroy5/eplusrun/internal/sim"
	"github.com/louisleroy5/eplusrun/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type simResult struct {
	Model       string `json:"model"`
	Fingerprint string `json:"fingerprint"`
	OutputDir   string `json:"output_dir"`
	Seconds     float64 `json:"seconds"`
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <model.idf> [model.idf...]",
		Short: "Run the simulator for one or more models",
		Long: `Simulate runs EnergyPlus for each model file. Results are cached per
model+arguments fingerprint; a model whose fingerprint is already cached
is not re-run. Several models run concurrently up to --workers, each in
its own isolated working directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weather, _ := cmd.Flags().GetString("weather")
			asVersion, _ := cmd.Flags().GetString("as-version")
			annual, _ := cmd.Flags().GetBool("annual")
			designDay, _ := cmd.Flags().GetBool("design-day")
			upgrade, _ := cmd.Flags().GetBool("upgrade")
			workers, _ := cmd.Flags().GetInt("workers")
			jsonOut, _ := cmd.Flags().GetBool("json")

			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = session.Config.Run.Workers
			}

			results := make([]simResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					m := session.Load(idf.FilePath(path))
					m.SetWeather(weather)
					if annual {
						m.SetAnnual(true)
					}
					if designDay {
						m.SetDesignDay(true)
					}
					if asVersion != "" {
						v, err := version.Parse(asVersion)
						if err != nil {
							return err
						}
						m.SetAsVersion(v)
					}
					if upgrade {
						if err := session.Upgrade(ctx, m); err != nil {
							return err
						}
					}
					res, err := session.Simulate(ctx, m, sim.RunContext{Slot: i})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fp, _ := session.Fingerprint(m)
					results[i] = simResult{
						Model:       m.Name(),
						Fingerprint: fp,
						OutputDir:   res.OutputDir,
						Seconds:     res.Duration.Seconds(),
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(results)
			}
			for _, r := range results {
				fmt.Printf("%s  %s  (%.1fs)\n  %s\n", r.Model, r.Fingerprint[:12], r.Seconds, r.OutputDir)
			}
			return nil
		},
	}

	cmd.Flags().StringP("weather", "w", "", "Weather file path (required)")
	cmd.Flags().String("as-version", "", "Simulator version to run against (default: configured or latest installed)")
	cmd.Flags().Bool("annual", false, "Force annual simulation")
	cmd.Flags().Bool("design-day", false, "Force design-day-only simulation")
	cmd.Flags().Bool("upgrade", false, "Migrate each model to the target version before running")
	cmd.Flags().Int("workers", 0, "Concurrent model runs (default from config)")
	cmd.MarkFlagRequired("weather")
	return cmd
}
