package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagectx/config"
	"pagectx/internal/adapter/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many vectors the cache holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, path, err := openCache()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Count()
		if err != nil {
			return fmt.Errorf("failed to count vectors: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vectors\n", path, n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, path, err := openCache()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: cleared\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func openCache() (*store.BoltEmbeddingStore, string, error) {
	path := GetConfig().CachePath(GetRootDir())
	if err := config.EnsureDir(path); err != nil {
		return nil, "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	st, err := store.NewBoltEmbeddingStore(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return st, path, nil
}
