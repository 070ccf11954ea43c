package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/swipepad/internal/catalog"
	"github.com/roach88/swipepad/internal/domain"
)

// CatalogOptions holds flags for the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Path     string
	Category string
}

// CatalogListing is the JSON payload of `catalog list`.
type CatalogListing struct {
	Category string           `json:"category,omitempty"`
	Count    int              `json:"count"`
	Projects []domain.Project `json:"projects"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the project catalog",
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "catalog", "", "catalog file (.json or .yaml, default from config)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog projects",
		Long: `List the projects in a catalog, optionally filtered by category.

Examples:
  swipepad catalog list --catalog projects.json
  swipepad catalog list --catalog projects.yaml --category climate
  swipepad catalog list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(cmd, opts)
		},
	}
	list.Flags().StringVar(&opts.Category, "category", "", "only list projects in this category")

	categories := &cobra.Command{
		Use:           "categories",
		Short:         "List catalog categories",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.load()
			if err != nil {
				return err
			}
			names := cat.Categories()
			return opts.formatter(cmd).Success(names, func(w io.Writer) {
				for _, name := range names {
					fmt.Fprintln(w, name)
				}
			})
		},
	}

	cmd.AddCommand(list, categories)
	return cmd
}

func (o *CatalogOptions) load() (*catalog.Catalog, error) {
	path := stringFlag(o.Path, o.Config.CatalogPath)
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load catalog %s", path), err)
	}
	return cat, nil
}

func runCatalogList(cmd *cobra.Command, opts *CatalogOptions) error {
	cat, err := opts.load()
	if err != nil {
		return err
	}

	projects := cat.List(opts.Category)
	if projects == nil {
		projects = []domain.Project{}
	}
	listing := CatalogListing{
		Category: opts.Category,
		Count:    len(projects),
		Projects: projects,
	}

	return opts.formatter(cmd).Success(listing, func(w io.Writer) {
		if len(projects) == 0 {
			fmt.Fprintln(w, "No projects found.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tRECIPIENT")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.RecipientAddress)
		}
		tw.Flush()
	})
}
