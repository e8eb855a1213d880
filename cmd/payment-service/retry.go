package main

import (
	"encoding/json"
	"fmt"

	"github.com/LavaJover/shvark-payment-service/internal/app/setup"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/response"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/spf13/cobra"
)

func retryCmd() *cobra.Command {
	var input paymentdto.RetryInput
	cmd := &cobra.Command{
		Use:   "retry <invoice-id>",
		Short: "Re-drive the payment of an open invoice",
		Args:  cobra.ExactArgs(1),
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

			input.InvoiceID = args[0]
			result, err := ucs.Payment.RetryRequest(cmd.Context(), &input)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(response.FromGatewayResult(result), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&input.OrganizationID, "organization", "", "organization id owning the invoice")
	cmd.Flags().StringVar(&input.GatewayAccountID, "account", "", "connected gateway account of the invoice")
	return cmd
}
