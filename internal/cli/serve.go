package cli

import (
	"context"
	"net"

	"github.com/spf13/cobra"

	"github.com/matzehuels/slimdeps/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory as a repository over HTTP",
		Long: `Serve a directory using the repository layout, so other machines (or a
test suite) can use it as a --repo. Defaults to the local store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = c.cfg.Store.Dir
			}
			return c.runServe(cmd.Context(), dir, addr)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to serve (default: the store)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, dir, addr string) error {
	srv, err := server.New(dir, server.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr, func(a net.Addr) {
		printSuccess("Serving %s", srv.Dir())
		printNextStep("Use it with", "slimdeps inject --repo http://"+a.String()+"/")
	})
}
