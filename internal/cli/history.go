package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCmd(rt *cmdEnv) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.app.History.List(cmd.Context(), force)
			if err != nil {
				return err
			}
			if len(res.Value) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No analyses yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDATE\tSCORE\tRISK\tPREVIEW")
			for _, it := range res.Value {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", it.ID, it.DisplayName, it.Date, it.Score, it.Risk, it.SnippetPreview)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cache")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <analysis-id>",
		Short: "Delete one analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.History.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	var yes bool
	wipe := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd, "Delete all analyses? This cannot be undone.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			if err := rt.app.History.Wipe(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
	wipe.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(wipe)
	return cmd
}
