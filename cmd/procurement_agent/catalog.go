package main

import (
	"fmt"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/observability"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect supplier and product CSV files",
	Long:  "Parses the supplier and product CSV files the server can preload and prints them. With --specialty, shows which supplier a job for that specialty would call.",
	RunE:  runCatalog,
}

var (
	catalogSuppliers string
	catalogProducts  string
	catalogSpecialty string
)

func init() {
	catalogCmd.Flags().StringVarP(&catalogSuppliers, "suppliers", "s", "", "Path to the supplier CSV file")
	catalogCmd.Flags().StringVarP(&catalogProducts, "products", "p", "", "Path to the product CSV file")
	catalogCmd.Flags().StringVar(&catalogSpecialty, "specialty", "", "Show the suppliers matching this specialty")
	catalogCmd.MarkFlagsOneRequired("suppliers", "products")

	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	store, err := loadCatalog(catalogSuppliers, catalogProducts)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())

	if catalogProducts != "" {
		printer.PrintProducts(store.Products())
	}
	if catalogSuppliers == "" {
		return nil
	}
	if catalogSpecialty == "" {
		printer.PrintSuppliers(store.Suppliers())
		return nil
	}

	matches, err := catalog.MatchSuppliers(catalogSpecialty, store.Suppliers())
	if err != nil {
		return err
	}
	printer.PrintSuppliers(matches)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "A %s job would call %s (%s)\n",
		catalogSpecialty, matches[0].SupplierName, matches[0].PhoneNumber)
	return err
}
