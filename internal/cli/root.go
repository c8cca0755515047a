// Package cli defines the Cobra commands of the contractguard CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ContractGuard/internal/app"
	"ContractGuard/internal/apperr"
	"ContractGuard/internal/config"
	"ContractGuard/internal/logging"
)

var version = "dev" // set via ldflags at build time

// Options let tests replace the environment the commands run in.
type Options struct {
	App    app.Options
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Config replaces loading from file and environment.
	Config *config.Config
}

type cmdEnv struct {
	opts       Options
	configPath string
	apiURL     string
	verbose    bool

	app *app.Application
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	rt := &cmdEnv{opts: opts}

	root := &cobra.Command{
		Use:   "contractguard",
		Short: "Contract risk analysis from the terminal",
		Long: `contractguard submits contracts (pasted text, a document or page photos)
for risk analysis and manages the account, history, credits and shares.`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: rt.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.close()
		},
	}
	if opts.Stdin != nil {
		root.SetIn(opts.Stdin)
	}
	if opts.Stdout != nil {
		root.SetOut(opts.Stdout)
	}
	if opts.Stderr != nil {
		root.SetErr(opts.Stderr)
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", os.Getenv("CONTRACTGUARD_CONFIG"), "Path to a YAML config file")
	root.PersistentFlags().StringVar(&rt.apiURL, "api-url", "", "Backend base URL (overrides config)")
	root.PersistentFlags().BoolVar(&rt.verbose, "verbose", false, "Log diagnostics to stderr")

	root.AddCommand(
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newMeCmd(rt),
		newProfileCmd(rt),
		newHistoryCmd(rt),
		newAnalyzeCmd(rt),
		newPayCmd(rt),
		newOrdersCmd(rt),
		newShareCmd(rt),
		newPingCmd(rt),
	)
	return root
}

// Execute runs the CLI. Called from main.
func Execute() {
	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

// errorText hides diagnostics of classified failures behind the short user
// message. Usage errors are shown as is.
func errorText(err error) string {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if ae.Kind == apperr.KindInvalidInput && ae.Message != "" {
		return "Invalid input: " + ae.Message
	}
	return apperr.UserMessage(err)
}

func (rt *cmdEnv) open(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if rt.opts.Config != nil {
		cfg = *rt.opts.Config
	} else {
		cfg = config.LoadFrom(rt.configPath)
	}
	if rt.apiURL != "" {
		cfg.API.BaseURL = rt.apiURL
	}
	if rt.verbose {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a, err := app.New(cfg, logger, rt.opts.App)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	rt.app = a
	return nil
}

func (rt *cmdEnv) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}
