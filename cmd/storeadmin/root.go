package main

import (
	"io"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	in         io.Reader
	out        io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &rootOptions{in: in, out: out}

	cmd := &cobra.Command{
		Use:           "storeadmin",
		Short:         "Storefront administration console",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newProductsCmd(opts),
		newUploadCmd(opts),
		newHealthCmd(opts),
	)
	return cmd
}

// withApp builds the app for one command run and tears it down afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(a)
}
