package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ContractGuard/internal/domain"
)

func newShareCmd(rt *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Publish or open shared analysis summaries",
	}

	var name string
	create := &cobra.Command{
		Use:   "create <analysis-id>",
		Short: "Create a public share link for an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := rt.app.Shares.Create(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Share %s", sh.ShareID)
			if sh.ExpiresAt != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (expires %s)", domain.DateText(sh.ExpiresAt))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Contract name shown on the share")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <share-id>",
		Short: "Show a shared summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := rt.app.Shares.Get(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrShareExpired) {
				fmt.Fprintln(cmd.OutOrStdout(), "This share link has expired")
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sh.ContractName != "" {
				fmt.Fprintf(out, "Contract: %s\n", sh.ContractName)
			}
			fmt.Fprintf(out, "Score:    %d", sh.Score)
			if sh.ScoreTitle != "" {
				fmt.Fprintf(out, " (%s)", sh.ScoreTitle)
			}
			fmt.Fprintln(out)
			if sh.RiskSummary != "" {
				fmt.Fprintf(out, "Summary:  %s\n", sh.RiskSummary)
			}
			return nil
		},
	})
	return cmd
}
