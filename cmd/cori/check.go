package main

import (
	"fmt"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration documents without starting any gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := documentsDir
		if dir == "" {
			dir = "./config"
		}
		store, err := docmodel.NewStore(dir)
		if err != nil {
			return fmt.Errorf("documents invalid: %w", err)
		}
		snapshot := store.Snapshot()
		fmt.Printf("ok: %d table(s), %d role(s)\n", len(snapshot.Schema.Tables), len(snapshot.Roles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
