package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/domain"
	"ContractGuard/internal/swr"
)

type analyzeFlags struct {
	contractType string
	identity     string
	yes          bool
	mimeType     string
}

func (f *analyzeFlags) options() domain.AnalysisOptions {
	return domain.AnalysisOptions{
		ContractType: domain.ContractType(f.contractType),
		Identity:     domain.Identity(f.identity),
	}.Normalized()
}

func newAnalyzeCmd(rt *cmdEnv) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Submit a contract for risk analysis",
	}
	cmd.PersistentFlags().StringVar(&flags.contractType, "type", string(domain.ContractGeneral), "Contract type (general, lease, employment, nda, ...)")
	cmd.PersistentFlags().StringVar(&flags.identity, "identity", string(domain.PartyA), "Party you represent (A or B)")
	cmd.PersistentFlags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(&cobra.Command{
		Use:   "text [file|-]",
		Short: "Analyze pasted contract text (read from a file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readText(cmd, args)
			if err != nil {
				return err
			}
			return runAnalysis(cmd, rt, flags, domain.TextPayload(content))
		},
	})

	fileCmd := &cobra.Command{
		Use:   "file <document>",
		Short: "Analyze a single document (PDF, DOCX, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, rt, flags, domain.FilePayload(args[0], flags.mimeType, ""))
		},
	}
	fileCmd.Flags().StringVar(&flags.mimeType, "mime", "", "Override the detected MIME type")
	cmd.AddCommand(fileCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "images <page>...",
		Short: "Analyze page photos of one contract, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, rt, flags, domain.ImagesPayload(domain.PagesFromPaths(args)))
		},
	})
	return cmd
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", apperr.Wrap(apperr.KindInvalidInput, "read text", err)
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "read text", err)
	}
	return string(raw), nil
}

func runAnalysis(cmd *cobra.Command, rt *cmdEnv, flags *analyzeFlags, payload domain.UploadPayload) error {
	ctx := cmd.Context()
	orch := rt.app.Analysis

	// Load the account as a screen would; the guard itself only reads the cache.
	if _, err := rt.app.Account.Me(ctx, false); err != nil && swr.ReasonOf(err) != swr.ReasonUnauth {
		return err
	}
	if err := orch.Prepare(payload); err != nil {
		return err
	}
	if !flags.yes {
		ok, err := confirm(cmd, fmt.Sprintf("Submit %s for analysis? This uses 1 credit.", payload.Label()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
	}

	view := newProgressView(cmd.OutOrStdout())
	job := orch.Start(ctx, payload, flags.options(), view.Update)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			job.Cancel()
		case <-job.Done():
		}
	}()

	result, err := job.Wait(context.Background())
	view.Finish()
	if err != nil {
		if apperr.IsKind(err, apperr.KindCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), "Analysis cancelled")
			return nil
		}
		return err
	}
	printResult(cmd, result)
	return nil
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printResult(cmd *cobra.Command, r domain.AnalysisResult) {
	out := cmd.OutOrStdout()
	score := domain.ClampScore(r.Score)
	fmt.Fprintf(out, "Analysis %s\n", r.ID)
	if r.Name != "" {
		fmt.Fprintf(out, "Contract: %s\n", r.Name)
	}
	fmt.Fprintf(out, "Score:    %d (%s risk)\n", score, strings.ToLower(string(domain.RiskForScore(score))))
	if r.RiskSummary != "" {
		fmt.Fprintf(out, "Summary:  %s\n", r.RiskSummary)
	}
	for i, c := range r.Clauses {
		fmt.Fprintf(out, "\n%d. [%s] %s", i+1, c.Level, c.Title)
		if c.Section != "" {
			fmt.Fprintf(out, " (%s)", c.Section)
		}
		fmt.Fprintln(out)
		if c.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", c.Explanation)
		}
		if c.Suggestion != "" {
			fmt.Fprintf(out, "   Suggestion: %s\n", c.Suggestion)
		}
	}
}
