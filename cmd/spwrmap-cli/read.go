package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd(opts *globalOptions) *cobra.Command {
	var address uint32
	var length uint32

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Issue an RMAP Read-Command and print the reply data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := opts.operationContext()
			defer cancel()

			packet, err := s.node.Read(ctx, opts.targetDescriptor(), address, length)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if packet.Status != 0 {
				fmt.Printf("non-zero status: 0x%02x\n", packet.Status)
			}
			fmt.Printf("% 02x\n", packet.Data)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&address, "memory-address", 0, "remote memory address to read from")
	cmd.Flags().Uint32Var(&length, "length", 4, "number of bytes to read")
	return cmd
}
