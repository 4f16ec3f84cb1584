package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dem-terrain-render/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance commands",
}

var catalogScanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Scan a folder for elevation tiles and persist its catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogScan,
}

func init() {
	catalogCmd.AddCommand(catalogScanCmd)
}

func runCatalogScan(cmd *cobra.Command, args []string) error {
	folder := args[0]
	cat, err := catalog.Scan(folder)
	if err != nil {
		return err
	}
	if err := catalog.Save(folder, cat); err != nil {
		return err
	}
	fmt.Printf("catalogued %d tiles in %s\n", len(cat.Tiles), folder)
	fmt.Printf("coverage: W=%v N=%v E=%v S=%v\n", cat.Coverage.West, cat.Coverage.North, cat.Coverage.East, cat.Coverage.South)
	return nil
}
