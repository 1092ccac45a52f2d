package main

import (
	"fmt"

	"github.com/louisleroy5/eplusrun/internal/idf"
	"github.com/louisleroy5/eplusrun/internal/transition"
	"github.com/louisleroy5/eplusrun/internal/version"
	"github.com/spf13/cobra"
)

func newUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade <model.idf>",
		Short: "Migrate a model file to a newer EnergyPlus version",
		Long: `Upgrade steps a model through the installed transition executables,
one adjacent version at a time, up to the target version. Downgrades are
refused. The transitioned file replaces the input unless --output names a
different destination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toStr, _ := cmd.Flags().GetString("to")
			output, _ := cmd.Flags().GetString("output")

			session, err := newSession(cmd)
			if err != nil {
				return err
			}

			to := session.Install.Version
			if toStr != "" {
				if to, err = version.Parse(toStr); err != nil {
					return err
				}
			}

			src := args[0]
			dst := src
			if output != "" {
				dst = output
			}

			m := session.Load(idf.FilePath(src))
			from, err := m.FileVersion()
			if err != nil {
				return err
			}
			if from == to {
				fmt.Printf("%s is already at version %s\n", src, to)
				return nil
			}

			engine := &transition.Engine{UpdaterDir: session.Install.UpdaterDir(), Log: session.Log}
			if err := engine.Upgrade(cmd.Context(), src, dst, to); err != nil {
				return err
			}
			fmt.Printf("transitioned %s from %s to %s -> %s\n", src, from, to, dst)
			return nil
		},
	}

	cmd.Flags().String("to", "", "Target version (default: the session's simulator version)")
	cmd.Flags().StringP("output", "o", "", "Write the transitioned file here instead of overwriting the input")
	return cmd
}
