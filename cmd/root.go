// Package cmd is the brovakt CLI root, in the shape of the teacher's
// cmd.CMD + cli/ec.go: a cobra root command that loads .env in
// PersistentPreRunE, with subcommands registered via init()/AddCommand.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brovakt/canal/config"
	"github.com/brovakt/canal/logging"
)

// DefaultHTTPAddr is the status server's default bind address.
const DefaultHTTPAddr = ":8080"

var cfg config.Config

// CMD is the root command; main.go calls CMD.Execute().
var CMD = &cobra.Command{
	Use:   "brovakt",
	Short: "Trollhättan canal bridge-status watcher",
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		cfg = config.Load()
		debug, _ := c.Flags().GetBool("debug")
		logging.Init(debug || cfg.Debug)
		return nil
	},
}

func init() {
	CMD.PersistentFlags().Bool("debug", false, "enable debug logging")
}

func Execute() error {
	return CMD.Execute()
}
