package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"feedwatch/internal/config"
	"feedwatch/internal/db"
	"feedwatch/internal/logging"
	"feedwatch/internal/migrate"
)

var (
	migrateSQLitePath string
	migrateDryRun     bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "migrate applies the embedded schema migrations to the sqlite database at SQLITE_PATH.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if migrateSQLitePath != "" {
			cfg.SQLitePath = migrateSQLitePath
			cfg.SQLiteDSN = ""
		}
		logger := logging.New(cfg, version, appName)

		conn, err := db.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(conn) }()

		ctx := context.Background()
		out := cmd.OutOrStdout()
		if migrateDryRun {
			pending, err := migrate.Pending(ctx, conn)
			if err != nil {
				return err
			}
			for _, m := range pending {
				fmt.Fprintf(out, "pending %s %s\n", m.Version, m.Name)
			}
			fmt.Fprintf(out, "%d pending\n", len(pending))
			return nil
		}

		n, err := migrate.Run(ctx, conn, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "applied %d migrations\n", n)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSQLitePath, "sqlite-path", "", "Override SQLITE_PATH")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "List pending migrations without applying them")
}
