package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPayCmd(rt *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <sku>",
		Short: "Create a credit purchase and print its payment parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prepay, err := rt.app.Payments.Prepay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			params, err := json.MarshalIndent(prepay.PaymentParams, "", "  ")
			if err != nil {
				return fmt.Errorf("encode payment params: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Order:  %s\n", prepay.OutTradeNo)
			fmt.Fprintf(out, "Params: %s\n", params)
			fmt.Fprintf(out, "After paying run: contractguard pay confirm %s\n", prepay.OutTradeNo)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <out-trade-no>",
		Short: "Reconcile the balance after the payment completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := rt.app.Payments.ConfirmCompleted(cmd.Context(), args[0])
			select {
			case <-conf.Done():
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			out := cmd.OutOrStdout()
			if conf.Credited() {
				fmt.Fprintln(out, "Payment confirmed")
			} else {
				fmt.Fprintln(out, "Payment not confirmed yet; credits will appear once the provider settles")
			}
			if me, ok := rt.app.Account.Peek(); ok {
				fmt.Fprintf(out, "Credits: %d\n", me.Credits)
			}
			return nil
		},
	})
	return cmd
}

func newOrdersCmd(rt *cmdEnv) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List recent credit purchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := rt.app.Payments.Orders(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSTATUS\tCREDITS\tAMOUNT\tCREATED")
			for _, o := range orders {
				created := o.CreatedAt
				if ts, ok := o.Created(); ok {
					created = ts.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", o.OutTradeNo, o.StatusText(), o.Credits, o.FeeText(), created)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum orders to list (1-50)")
	return cmd
}
