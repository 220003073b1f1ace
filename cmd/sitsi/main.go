// Package main is the entry point for the sitsi CLI: inversion of
// synchrotron camera images into radial runaway density profiles.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fusion-imaging/sitsi/internal/version"
)

// rootCmd is the base command for the sitsi CLI.
var rootCmd = &cobra.Command{
	Use:   "sitsi",
	Short: "Soft X-ray / synchrotron image inversion toolkit",
	Long: `sitsi reconstructs radial runaway-electron density profiles from
synchrotron camera images using precomputed Green's functions.

Camera videos are cleaned with per-camera filter chains, a frame is
selected and inverted with Tikhonov regularisation, and results are
recorded in a run database served by the monitor.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sitsi version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sitsi.yaml or ~/.config/sitsi/config.yaml)")
	rootCmd.PersistentFlags().String("db", "sitsi.db", "path to the run database")
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sitsi")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sitsi"))
		}
	}

	viper.SetEnvPrefix("SITSI")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
