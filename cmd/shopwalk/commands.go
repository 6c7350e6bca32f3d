package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/shopwalk/format"
	"github.com/use-agent/shopwalk/imagefetch"
	"github.com/use-agent/shopwalk/models"
)

func searchCmd() *cobra.Command {
	var target, attempts int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search Trendyol and list product cards",
		Long: `Open the search results for a query and scroll until the listing holds
the target number of product cards, the scroll budget is spent, or the
page stops growing. Prints name, description and price per card.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.scraper.SearchListing(cmd.Context(), strings.Join(args, " "), target, attempts)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), res, format.Listing(res))
		},
	}

	cmd.Flags().IntVarP(&target, "target", "t", models.DefaultTargetCount, "number of products wanted (1-100)")
	cmd.Flags().IntVarP(&attempts, "attempts", "a", models.DefaultMaxScrollAttempts, "maximum scroll cycles (1-30)")
	return cmd
}

// productCmd builds a subcommand that takes a product name and runs one
// product operation.
func productCmd(use, short string, run func(ctx context.Context, cmd *cobra.Command, a *app, name string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [product name]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd.Context(), cmd, a, strings.Join(args, " "))
		},
	}
}

func detailsCmd() *cobra.Command {
	return productCmd("details", "Extract the detail fields of the first matching product",
		func(ctx context.Context, cmd *cobra.Command, a *app, name string) error {
			res, err := a.scraper.GetProductDetails(ctx, name)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), res, format.Details(res))
		})
}

func reviewsCmd() *cobra.Command {
	return productCmd("reviews", "Reveal and read the reviews of the first matching product",
		func(ctx context.Context, cmd *cobra.Command, a *app, name string) error {
			res, err := a.scraper.GetProductReviews(ctx, name)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), res, format.Reviews(res))
		})
}

func imagesCmd() *cobra.Command {
	var dir string

	cmd := productCmd("images", "List the gallery images of the first matching product",
		func(ctx context.Context, cmd *cobra.Command, a *app, name string) error {
			res, err := a.scraper.GetProductImages(ctx, name)
			if err != nil {
				return err
			}
			text := format.Images(res)
			if dir != "" && res.Images.Primary != nil {
				text += downloadPrimary(ctx, a, res.Images.Primary.Src, dir)
			}
			return emit(cmd.OutOrStdout(), res, text)
		})

	cmd.Flags().StringVarP(&dir, "download", "d", "", "download the main image into this directory")
	return cmd
}

// downloadPrimary fetches and stores the main image. Failures are reported
// in the output rather than failing the command.
func downloadPrimary(ctx context.Context, a *app, src, dir string) string {
	u, err := imagefetch.Resolve(a.cfg.Site.BaseURL, src)
	if err != nil {
		return format.ImageError(err)
	}
	fetcher := imagefetch.New(imagefetch.Options{
		UserAgent:      a.cfg.Browser.UserAgent,
		AcceptLanguage: a.cfg.Browser.AcceptLanguage,
		Timeout:        a.cfg.Scraper.ImageTimeout,
		Proxy:          a.cfg.Browser.DefaultProxy,
	})
	img, err := fetcher.Fetch(ctx, u)
	if err != nil {
		return format.ImageError(err)
	}
	path, err := imagefetch.Save(img, dir)
	if err != nil {
		return format.ImageError(fmt.Errorf("save: %w", err))
	}
	a.logger.Info("image saved", "url", u, "path", path, "bytes", img.Size())
	return format.ImageFile(img.Format, img.Width, img.Height, img.Size(), path)
}
