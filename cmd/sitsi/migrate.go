package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fusion-imaging/sitsi/internal/runstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the run database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runstore.OpenRaw(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer store.Close()
		return store.MigrateUp()
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runstore.OpenRaw(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer store.Close()

		version, dirty, err := store.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Printf("version: %d dirty: %v\n", version, dirty)
		return nil
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Pin the schema version, recovering from a dirty state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version must be an integer: %w", err)
		}

		store, err := runstore.OpenRaw(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer store.Close()
		return store.MigrateForce(version)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateVersionCmd, migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
}
