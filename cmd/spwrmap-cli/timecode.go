package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTimeCodeCmd(opts *globalOptions) *cobra.Command {
	var value uint8

	cmd := &cobra.Command{
		Use:   "time-code",
		Short: "Emit a SpaceWire time code",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.node.EmitTimeCode(value); err != nil {
				return fmt.Errorf("emit time code: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Uint8Var(&value, "value", 0, "time code value, low 6 bits significant")
	return cmd
}
