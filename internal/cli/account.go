package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ContractGuard/internal/domain"
)

func newLoginCmd(rt *cmdEnv) *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with phone and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = pw
			}
			me, err := rt.app.Account.Login(cmd.Context(), phone, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d credits)\n", me.Name(), me.Credits)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(rt *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential and cached data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Account.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newMeCmd(rt *cmdEnv) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the account and credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.app.Account.Me(cmd.Context(), force)
			if err != nil {
				return err
			}
			printProfile(cmd, res.Value, rt.app.Client.BaseURL())
			fmt.Fprintf(cmd.OutOrStdout(), "Source:   %s (fetched %s)\n", res.Source, res.FetchedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cache")
	return cmd
}

func newProfileCmd(rt *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit the profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <display-name>",
		Short: "Change the display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := rt.app.Account.UpdateDisplayName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProfile(cmd, me, rt.app.Client.BaseURL())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a new avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := rt.app.Account.UploadAvatar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProfile(cmd, me, rt.app.Client.BaseURL())
			return nil
		},
	})
	return cmd
}

func printProfile(cmd *cobra.Command, me domain.Profile, baseURL string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:     %s\n", me.Name())
	if me.Phone != "" {
		fmt.Fprintf(out, "Phone:    %s\n", me.Phone)
	}
	if avatar := me.AvatarURLFor(baseURL); avatar != "" {
		fmt.Fprintf(out, "Avatar:   %s\n", avatar)
	}
	fmt.Fprintf(out, "Credits:  %d\n", me.Credits)
}

func newPingCmd(rt *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := rt.app.Ping(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is reachable", rt.app.Client.BaseURL())
			if status, ok := health["status"]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), " (status %v)", status)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
