// Command spwrmap-cli is a command-line SpwRmap client: connect to a
// TCP SpwRmap endpoint and issue read/write/time-code operations.
package main

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "spwrmap-cli",
		Short: "Issue RMAP read/write/time-code operations over TCP",
	}
	cmd.PersistentFlags().StringVar(&opts.address, "address", "localhost:10030", "SpwRmap TCP endpoint, host:port")
	cmd.PersistentFlags().DurationVar(&opts.connectTimeout, "connect-timeout", 0, "connect timeout (0 = none)")
	cmd.PersistentFlags().DurationVar(&opts.sendTimeout, "send-timeout", 0, "send timeout (0 = none)")
	cmd.PersistentFlags().DurationVar(&opts.recvTimeout, "recv-timeout", 0, "receive timeout (0 = none)")
	cmd.PersistentFlags().DurationVar(&opts.opTimeout, "op-timeout", 0, "timeout for the operation's reply (0 = none)")
	cmd.PersistentFlags().Uint8Var(&opts.targetLogicalAddress, "target-logical-address", 0xFE, "RMAP target logical address")
	cmd.PersistentFlags().Uint8Var(&opts.initiatorLogicalAddress, "initiator-logical-address", 0xFE, "RMAP initiator logical address")
	cmd.PersistentFlags().BytesHexVar(&opts.targetPath, "target-path", nil, "target SpaceWire routing path, hex")
	cmd.PersistentFlags().BytesHexVar(&opts.replyPath, "reply-path", nil, "reply SpaceWire routing path, hex")
	cmd.PersistentFlags().StringVar(&opts.redisAddr, "redis-telemetry-addr", "", "if set, publish transaction telemetry to this Redis server")
	cmd.PersistentFlags().StringVar(&opts.metricsListenAddr, "metrics-listen-addr", "", "if set, serve Prometheus metrics on this address")

	cmd.AddCommand(newReadCmd(opts))
	cmd.AddCommand(newWriteCmd(opts))
	cmd.AddCommand(newTimeCodeCmd(opts))
	return cmd
}

type globalOptions struct {
	address        string
	connectTimeout time.Duration
	sendTimeout    time.Duration
	recvTimeout    time.Duration
	opTimeout      time.Duration

	targetLogicalAddress    uint8
	initiatorLogicalAddress uint8
	targetPath              []byte
	replyPath               []byte

	redisAddr         string
	metricsListenAddr string
}
