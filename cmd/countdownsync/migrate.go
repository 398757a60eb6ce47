package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"countdowntodo-sync/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		return printVersion(cmd, conn, logger.Infof)
	},
}

func printVersion(cmd *cobra.Command, conn *sql.DB, logf func(string, ...any)) error {
	v, dirty, err := db.Version(conn)
	if err != nil {
		return err
	}
	logf("schema at version %d (dirty=%t)", v, dirty)
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}
