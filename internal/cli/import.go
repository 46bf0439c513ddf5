package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/upk240z/zipimport/internal/files/filesystem"
	"github.com/upk240z/zipimport/internal/logging"
	"github.com/upk240z/zipimport/internal/services"
	"github.com/upk240z/zipimport/internal/sink"
	"github.com/upk240z/zipimport/internal/tui"
)

var importOpts importFlags

func registerImportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&importOpts.connection, "connection", "", "Destination connection string (overrides $ZIPIMPORT_CONNECTION, $DATABASE_URL, $MYSQL_URI)")
	f.StringVarP(&importOpts.table, "table", "t", "", "Destination table, optionally schema-qualified (overrides $TABLE_NAME)")
	f.StringVar(&importOpts.mode, "mode", "", "Insert mode: row (default; failed rows are logged and skipped) or batch (transactional, first failure aborts)")
	f.IntVar(&importOpts.batchSize, "batch-size", 0, "Rows per transaction in batch mode (default 1000)")
	f.StringVar(&importOpts.onMalformed, "on-malformed", "", "Malformed line policy: abort (default) or skip")
	f.StringVar(&importOpts.configPath, "config", "", "Config file (default ./zipimport.yaml if present)")
	f.StringArrayVar(&importOpts.envFiles, "env-file", nil, "Load environment variables from file (repeatable, later files win)")
}

func runImport(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	if err := loadEnvFiles(importOpts.envFiles); err != nil {
		return err
	}

	cfg, err := resolveImportConfig(args[0], importOpts)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLoggerTo(cmd.ErrOrStderr(), verbose)
	svc := services.NewImportService(sink.Open, filesystem.NewOSFileSystem(), logger, cmd.OutOrStdout())

	state, err := svc.Import(cmd.Context(), cfg)
	if state.Streamed() {
		cmd.PrintErr(tui.RenderSummary(state, cfg.Table, summaryMode(cmd)))
	}
	return err
}

func summaryMode(cmd *cobra.Command) tui.Mode {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		return tui.DetectMode(f)
	}
	return tui.ModePlain
}
