// Command wbmsctl runs maintenance tasks against the clinic database and
// media storage.
package main

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chmc/wbms-api/internal/config"
	"github.com/chmc/wbms-api/internal/repository/postgres"
	"github.com/chmc/wbms-api/pkg/logger"
)

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:           "wbmsctl",
		Short:         "CHMC back office maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding config.yml")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(verifyCodeCmd())
	rootCmd.AddCommand(exportPaymentsCmd())
	rootCmd.AddCommand(templateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, err
	}
	cfg.Log.Format = "console"
	logger.New(cfg.Log)
	return cfg, nil
}

// openStore connects to the configured database. The caller closes the pool.
func openStore(ctx context.Context, cfg *config.Config) (*sqlx.DB, *postgres.Store, error) {
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, postgres.NewStore(db, cfg.Documents.FileNumbering), nil
}
