package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"countdowntodo-sync/internal/db"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/services"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manage the app identity mapping table",
}

var mappingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the mapping table with the contents of a yaml or toml file",
	Args:  cobra.ExactArgs(1),
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

		svc := services.NewMappingService(repos.New(conn), services.WithLogger(logger))
		n, err := svc.ImportFile(context.Background(), args[0], importMerge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d mappings from %s\n", n, args[0])
		return nil
	},
}

var importMerge bool

func init() {
	mappingsImportCmd.Flags().BoolVar(&importMerge, "merge", false, "add or update entries instead of replacing the table")
	mappingsCmd.AddCommand(mappingsImportCmd)
}
