package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(open serviceOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire staged import batches whose TTL has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			n, err := svc.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d batch(es)\n", n)
			return nil
		},
	}
}
