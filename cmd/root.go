package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/ui"
	"github.com/BioHazard786/tandem/internal/version"
)

var (
	flagServer   string
	flagLogLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Two-peer WebRTC signaling relay and chat client",
	Long: `tandem pairs two peers in a named room and relays their WebRTC handshake
(offer, answer and ICE candidates) so they can talk to each other directly.

Run "tandem serve" for the relay, then "tandem join <room>" on two machines.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "relay websocket URL (env TANDEM_SERVER)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func loadPeerConfig(opts config.PeerOptions) (*config.Peer, error) {
	opts.ServerURL = flagServer
	opts.LogLevel = flagLogLevel
	return config.LoadPeer(opts)
}
