package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/swipepad/internal/api"
	"github.com/roach88/swipepad/internal/catalog"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Catalog string
	Addr    string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project catalog over HTTP",
		Long: `Serve the read-only catalog API until interrupted.

Routes:
  GET /health
  GET /api/categories
  GET /api/projects[?category=NAME]
  GET /api/projects/random[?category=NAME]
  GET /api/projects/{id}

Examples:
  swipepad serve --catalog projects.json --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog file (default from config)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger := opts.logger(cmd)

	path := stringFlag(opts.Catalog, opts.Config.CatalogPath)
	cat, err := catalog.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	logger.Info("catalog loaded", "path", path, "projects", cat.Len())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(api.NewHandler(cat, api.WithLogger(logger)), opts.Config.CORSOrigins)
	addr := stringFlag(opts.Addr, opts.Config.ServerAddr)
	if err := api.Serve(ctx, addr, router, logger); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
