package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brovakt/canal/app"
)

var (
	serveAISAddr  string
	serveHTTPAddr string
	serveBridges  string
	serveOpen     bool
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the AIS ingest pipeline and the HTTP status server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serveAISAddr, "ais", "", "host:port of the AIS TCP feed (disabled if empty)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", DefaultHTTPAddr, "address to bind the status HTTP server")
	serveCmd.Flags().StringVar(&serveBridges, "bridges", "", "optional bridge-registry override JSON file, hot-reloaded")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the status page in a browser once serving")
	CMD.AddCommand(serveCmd)
}

func runServe(c *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Start(ctx, app.RunConfig{
		Config:     cfg,
		AISAddr:    serveAISAddr,
		HTTPAddr:   serveHTTPAddr,
		BridgeFile: serveBridges,
	}, slog.Default())
	if err != nil {
		return err
	}
	_ = a

	if serveOpen {
		openBrowser("http://localhost" + serveHTTPAddr)
	}

	<-ctx.Done()
	return nil
}
