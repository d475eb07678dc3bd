package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/productadmin"
)

// newRootCmd builds productctl. Every sub-command drives a productadmin.Store
// and prints the page the UI would navigate to.
func newRootCmd(cfg config.ServiceConfig, in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "productctl",
		Short:        "Manage storefront products through the admin API",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cfg.BaseURL, "api-url", cfg.BaseURL, "admin API base URL")
	root.PersistentFlags().StringVar(&cfg.APIKey, "token", cfg.APIKey, "admin bearer token")

	newStore := func(cmd *cobra.Command) *productadmin.Store {
		client := productadmin.NewClient(cfg, logging.NewLoggerV2("productctl"))
		return productadmin.NewStore(client, productadmin.NavigatorFunc(func(path string) {
			fmt.Fprintf(cmd.OutOrStdout(), "navigate: %s\n", path)
		}))
	}

	root.AddCommand(
		newCreateCmd(newStore, in),
		newUpdateCmd(newStore, in),
		newDeleteCmd(newStore),
		newUploadCmd(newStore),
		newReviewCmd(newStore),
	)
	return root
}

type storeFactory func(cmd *cobra.Command) *productadmin.Store

// finish turns the store's error state into the command result.
func finish(store *productadmin.Store, err error) error {
	if err == nil {
		return nil
	}
	if msg := store.Error(); msg != "" {
		return stderrors.New(msg)
	}
	return err
}

func readProduct(path string, in io.Reader) (*models.Product, error) {
	r := in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var product models.Product
	if err := json.NewDecoder(r).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &product, nil
}

func newCreateCmd(newStore storeFactory, in io.Reader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product from JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			product, err := readProduct(file, in)
			if err != nil {
				return err
			}
			store := newStore(cmd)
			return finish(store, store.NewProduct(commandContext(cmd), product))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "product JSON file, - for stdin")
	return cmd
}

func newUpdateCmd(newStore storeFactory, in io.Reader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Replace a product's fields from JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := readProduct(file, in)
			if err != nil {
				return err
			}
			store := newStore(cmd)
			return finish(store, store.UpdateProduct(commandContext(cmd), product, args[0]))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "product JSON file, - for stdin")
	return cmd
}

func newDeleteCmd(newStore storeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newStore(cmd)
			return finish(store, store.DeleteProduct(commandContext(cmd), args[0]))
		},
	}
}

func newUploadCmd(newStore storeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <product-id> <image>...",
		Short: "Upload product images",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]productadmin.ImageFile, 0, len(args)-1)
			for _, path := range args[1:] {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				files = append(files, productadmin.ImageFile{Name: filepath.Base(path), Content: f})
			}

			store := newStore(cmd)
			if err := store.UploadProductImages(commandContext(cmd), files, args[0]); err != nil {
				return finish(store, err)
			}
			if store.Loading() {
				fmt.Fprintln(cmd.OutOrStdout(), "upload accepted without image data")
			}
			return nil
		},
	}
}

func newReviewCmd(newStore storeFactory) *cobra.Command {
	var review models.ReviewRequest
	cmd := &cobra.Command{
		Use:   "review <product-id>",
		Short: "Post a product review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			review.ProductID = args[0]
			if review.Rating < 1 || review.Rating > 5 {
				return fmt.Errorf("rating must be between 1 and 5")
			}
			store := newStore(cmd)
			return finish(store, store.PostReview(commandContext(cmd), &review))
		},
	}
	cmd.Flags().IntVar(&review.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&review.Comment, "comment", "", "review text")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
