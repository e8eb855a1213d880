package main

import (
	"fmt"

	"github.com/LavaJover/shvark-payment-service/internal/app/setup"
	usecase "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Replay order store writes parked in the backlog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			deps, err := setup.InitializeDependencies(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			ucs, err := setup.InitializeUsecases(deps)
			if err != nil {
				return err
			}

			out, err := ucs.Payment.SweepOrderSyncs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked=%d resolved=%d failed=%d\n", out.Checked, out.Resolved, out.Failed)
			if out.Failed > 0 {
				return fmt.Errorf("%d order syncs still pending", out.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", usecase.DefaultSweepLimit, "maximum backlog entries to replay")
	return cmd
}
