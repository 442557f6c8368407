package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/api"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/config"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/database"
)

// migrateCmd migrate 子命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the database schema for workflow definitions, instances, tasks and the directory tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := api.NewLoggerFromConfig(&cfg.Log)

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		logger.Info("database migration completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
