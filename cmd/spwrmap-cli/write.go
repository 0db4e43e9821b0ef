package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWriteCmd(opts *globalOptions) *cobra.Command {
	var address uint32
	var data []byte
	var wantReply bool

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Issue an RMAP Write-Command",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := opts.operationContext()
			defer cancel()

			packet, err := s.node.Write(ctx, opts.targetDescriptor(), address, data, wantReply)
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
			if wantReply {
				fmt.Printf("status: 0x%02x\n", packet.Status)
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&address, "memory-address", 0, "remote memory address to write to")
	cmd.Flags().BytesHexVar(&data, "data", nil, "bytes to write, hex")
	cmd.Flags().BoolVar(&wantReply, "reply", true, "request a Write-Reply")
	return cmd
}
