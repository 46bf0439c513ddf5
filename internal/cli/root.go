package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zipimport <source-file>",
	Short: "Load the Japan Post postal-code file into a database table",
	Long: `zipimport reads the Shift-JIS postal-code reference file, widens the
half-width kana columns, drops records whose validity period has ended and
replaces the contents of the destination table with the rest.

The destination is chosen by the connection string scheme:
  postgres://, postgresql://, Host=...;   PostgreSQL
  mysql://                                MySQL
  sqlite://, file:                        SQLite
  sqlserver://                            SQL Server

Configuration (highest precedence first):
  flags, --env-file files, environment, ./.env, zipimport.yaml

Environment:
  ZIPIMPORT_CONNECTION, DATABASE_URL, MYSQL_URI   connection string
  TABLE_NAME                                      destination table
  ZIPIMPORT_MODE, ZIPIMPORT_BATCH_SIZE, ZIPIMPORT_ON_MALFORMED
  ZIPIMPORT_AUTH_METHOD, AWS_REGION, ZIPIMPORT_GOOGLE_INSTANCE,
  AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET

Progress lines go to stdout; diagnostics go to stderr.

Exit Codes:
  0  - Import completed
  1  - Any fatal error (usage, configuration, connection, source, truncate,
       malformed record, batch failure)`,
	Args:         RequireSourcePath,
	RunE:         runImport,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	registerImportFlags(rootCmd)
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
