// Command cori runs and administers the Cori security kernel: the SQL
// Gateway, the Tool Gateway, and the supporting token/approval/config
// tooling.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	documentsDir string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "cori",
	Short: "Cori security kernel: capability tokens, RLS, and typed tool surfaces over PostgreSQL",
	Long: `cori sits between AI agents and a multi-tenant PostgreSQL database,
enforcing capability-token authentication, per-statement row-level
tenant isolation, a virtualized system catalog, and a generated,
validated tool surface with human-approval gating for sensitive
mutations.`,
	SilenceUsage: true,
}

// loadDotenv loads a .env file from the working directory into the
// process environment before any subcommand reads configuration, so a
// developer can keep BISCUIT_* and DATABASE_URL out of their shell
// history. A missing file is not an error.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		os.Stderr.WriteString("warning: .env: " + err.Error() + "\n")
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&documentsDir, "documents", "", "override the configuration documents directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	loadDotenv()
	Execute()
}
