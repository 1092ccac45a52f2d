package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/louisleroy5/eplusrun/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the result cache",
	}
	cmd.AddCommand(newCacheListCmd(), newCacheClearCmd())
	return cmd
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := &cache.Store{Root: cfg.Cache.Root, Enabled: true}
			entries, err := store.Entries()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Println("cache is empty")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %d files  %d bytes\n", e.Fingerprint, e.Files, e.Bytes)
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached fingerprint directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := &cache.Store{Root: cfg.Cache.Root, Enabled: true}
			entries, err := store.Entries()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Printf("removed %d cache entries\n", len(entries))
			return nil
		},
	}
}
