package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/storeadmin/catalog"
	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/rest"
)

func newProductsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "List and manage products",
	}
	cmd.AddCommand(
		newProductsListCmd(opts),
		newProductsGetCmd(opts),
		newProductsCreateCmd(opts),
		newProductsUpdateCmd(opts),
		newProductsDeleteCmd(opts),
	)
	return cmd
}

func newProductsListCmd(opts *rootOptions) *cobra.Command {
	var (
		page, size int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if size <= 0 {
					size = a.cfg.Catalog.PageSize
				}
				p, err := a.catalog.Products(cmd.Context(), catalog.PageRequest{Page: page, Size: size})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(opts.out, p)
				}
				return writeTable(opts.out, p)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number, from 0")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	return cmd
}

func writeTable(w io.Writer, p catalog.ProductPage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tPRICE\tDISCOUNT\tSTOCK")
	for _, prod := range p.Content {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%d\n", prod.UUID, prod.Name, prod.PriceOut, prod.Discount, prod.StockQuantity)
	}
	fmt.Fprintf(tw, "\npage %d of %d, %d products\n", p.Page+1, max(p.TotalPages, 1), p.TotalElements)
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newProductsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <uuid>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				p, err := a.catalog.Product(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(opts.out, p)
			})
		},
	}
}

// productFlags are the create form's fields. Prices are only set when
// their flag is given, so a missing price is reported as required.
type productFlags struct {
	name, description           string
	priceIn, priceOut, discount float64
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.description, "description", "", "product description")
	cmd.Flags().Float64Var(&f.priceIn, "price-in", 0, "purchase price")
	cmd.Flags().Float64Var(&f.priceOut, "price-out", 0, "selling price")
	cmd.Flags().Float64Var(&f.discount, "discount", 0, "discount")
}

func (f *productFlags) form(cmd *cobra.Command) form.Product {
	p := form.Product{Name: f.name, Description: f.description}
	if cmd.Flags().Changed("price-in") {
		p.PriceIn = form.Price(f.priceIn)
	}
	if cmd.Flags().Changed("price-out") {
		p.PriceOut = form.Price(f.priceOut)
	}
	if cmd.Flags().Changed("discount") {
		p.Discount = form.Price(f.discount)
	}
	return p
}

func newProductsCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		fields productFlags
		image  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product from the form fields and a thumbnail image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var file *rest.File
			if image != "" {
				f, err := readFile(image)
				if err != nil {
					return err
				}
				file = &f
			}
			return withApp(cmd, opts, func(a *app) error {
				p, err := a.catalog.CreateFromForm(cmd.Context(), fields.form(cmd), file)
				if err != nil {
					return err
				}
				return writeJSON(opts.out, p)
			})
		},
	}
	fields.register(cmd)
	cmd.Flags().StringVar(&image, "image", "", "thumbnail image file")
	return cmd
}

func newProductsUpdateCmd(opts *rootOptions) *cobra.Command {
	var fields productFlags
	cmd := &cobra.Command{
		Use:   "update <uuid>",
		Short: "Change fields of an existing product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				p, err := a.catalog.Product(ctx, args[0])
				if err != nil {
					return err
				}
				set := cmd.Flags().Changed
				if set("name") {
					p.Name = fields.name
				}
				if set("description") {
					p.Description = fields.description
				}
				if set("price-in") {
					p.PriceIn = fields.priceIn
				}
				if set("price-out") {
					p.PriceOut = fields.priceOut
				}
				if set("discount") {
					p.Discount = fields.discount
				}
				updated, err := a.catalog.Update(ctx, p)
				if err != nil {
					return err
				}
				return writeJSON(opts.out, updated)
			})
		},
	}
	fields.register(cmd)
	return cmd
}

func newProductsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.catalog.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, "deleted", args[0])
				return nil
			})
		},
	}
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload media files and print the resulting URI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]rest.File, 0, len(args))
			for _, path := range args {
				f, err := readFile(path)
				if err != nil {
					return err
				}
				files = append(files, f)
			}
			return withApp(cmd, opts, func(a *app) error {
				res, err := a.catalog.UploadFiles(cmd.Context(), files)
				if err != nil {
					return err
				}
				fmt.Fprintln(opts.out, res.URI)
				return nil
			})
		},
	}
}

func readFile(path string) (rest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rest.File{}, err
	}
	return rest.File{Name: filepath.Base(path), Data: data}, nil
}
