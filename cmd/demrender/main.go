/*
Purpose:
- dem-terrain-render CLI and service

Description:
- Renders shaded-relief / colorized map images from DEM elevation tile
  catalogs, either as a one-shot batch export or as a long-running JSON:API
  service.

Author:
- (adapted from the dtm-elevation-service lineage)
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForCobraError(err))
	}
}
