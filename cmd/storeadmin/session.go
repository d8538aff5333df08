package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/storeadmin/auth"
	"github.com/jonwraymond/storeadmin/form"
)

// landingPage is printed after a successful login.
const landingPage = "home"

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		email         string
		provider      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password or a social provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				var err error
				if provider != "" && provider != auth.ProviderPassword {
					_, err = a.session.LoginProvider(ctx, provider)
				} else {
					f := form.Login{Email: a.cfg.Auth.Email, Password: a.cfg.Auth.Password}
					if email != "" {
						f.Email = email
					}
					if passwordStdin {
						if f.Password, err = readLine(opts); err != nil {
							return err
						}
					}
					_, err = a.session.Login(ctx, f)
				}
				if err != nil {
					return err
				}
				if err := a.saveSession(); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, landingPage)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (default from config)")
	cmd.Flags().StringVar(&provider, "provider", "", "social provider: google, github or facebook")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func readLine(opts *rootOptions) (string, error) {
	line, err := bufio.NewReader(opts.in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.session.Logout(cmd.Context())
				if err := a.saveSession(); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, "logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				id := a.session.Identity()
				if id == nil {
					return auth.ErrNotLoggedIn
				}
				if id.IsExpired() {
					return auth.ErrTokenExpired
				}
				return writeJSON(opts.out, id)
			})
		},
	}
}
