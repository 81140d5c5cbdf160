package main

import (
	"encoding/json"
	"fmt"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/toolgen"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the tool surface generated for a role",
}

var toolsListCmd = &cobra.Command{
	Use:   "list <role>",
	Short: "List the tools a role's schema and permissions generate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tools, err := generateTools(args[0])
		if err != nil {
			return err
		}
		for _, t := range tools {
			fmt.Printf("%-24s %-8s %s\n", t.Name, t.Operation, t.Table)
		}
		return nil
	},
}

var toolsDescribeCmd = &cobra.Command{
	Use:   "describe <role> <tool>",
	Short: "Print a single generated tool's full definition as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tools, err := generateTools(args[0])
		if err != nil {
			return err
		}
		for _, t := range tools {
			if t.Name != args[1] {
				continue
			}
			out, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		return fmt.Errorf("tool %q not found for role %q", args[1], args[0])
	},
}

func generateTools(roleName string) ([]toolgen.Tool, error) {
	dir := documentsDir
	if dir == "" {
		dir = "./config"
	}
	store, err := docmodel.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	snapshot := store.Snapshot()
	role, ok := snapshot.Role(roleName)
	if !ok {
		return nil, fmt.Errorf("role %q not found", roleName)
	}
	generator := toolgen.NewGenerator()
	return generator.Generate(snapshot, role)
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd, toolsDescribeCmd)
}
