package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fusion-imaging/sitsi/internal/monitor"
	"github.com/fusion-imaging/sitsi/internal/runstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run database and result charts over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")

		store, err := runstore.Open(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := monitor.NewServer(monitor.Config{Address: listen, Store: store})
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
