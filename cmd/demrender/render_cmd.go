package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dem-terrain-render/internal/assembly"
	"dem-terrain-render/internal/export"
	"dem-terrain-render/internal/gradient"
	"dem-terrain-render/internal/progress"
	"dem-terrain-render/internal/render"
)

var renderFlags struct {
	west, north, east, south string
	sourceFile               string
	catalogFolder            string
	gradientFile             string
	scale                    float64
	scaleToCropArea          bool
	rangeMin, rangeMax       float64
	hasRangeOverride         bool
	outputPath               string
	outputKind               string
	timeoutSeconds           int
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single window to an output file",
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.west, "west", "", "west bound (decimal or DMS)")
	f.StringVar(&renderFlags.north, "north", "", "north bound (decimal or DMS)")
	f.StringVar(&renderFlags.east, "east", "", "east bound (decimal or DMS)")
	f.StringVar(&renderFlags.south, "south", "", "south bound (decimal or DMS)")
	f.StringVar(&renderFlags.sourceFile, "source-file", "", "single elevation raster file")
	f.StringVar(&renderFlags.catalogFolder, "catalog-folder", "", "folder of catalogued elevation tiles")
	f.StringVar(&renderFlags.gradientFile, "gradient", "", "gradient JSON document")
	f.Float64Var(&renderFlags.scale, "scale", 1.0, "export scale factor")
	f.BoolVar(&renderFlags.scaleToCropArea, "scale-to-crop-area", false, "scan the assembled window for its finite elevation range")
	f.Float64Var(&renderFlags.rangeMin, "range-min", 0, "elevation range override minimum")
	f.Float64Var(&renderFlags.rangeMax, "range-max", 0, "elevation range override maximum")
	f.BoolVar(&renderFlags.hasRangeOverride, "range-override", false, "apply --range-min/--range-max instead of the gradient's stored range")
	f.StringVar(&renderFlags.outputPath, "out", "", "output file path")
	f.StringVar(&renderFlags.outputKind, "format", "image", "output kind: image|georeferenced_image|flat_geo_image|raw_elevation|georeferenced_elevation|layered_sidecar")
	f.IntVar(&renderFlags.timeoutSeconds, "timeout", 0, "wall-clock timeout in seconds (0 = default)")
	_ = renderCmd.MarkFlagRequired("west")
	_ = renderCmd.MarkFlagRequired("north")
	_ = renderCmd.MarkFlagRequired("east")
	_ = renderCmd.MarkFlagRequired("south")
	_ = renderCmd.MarkFlagRequired("gradient")
	_ = renderCmd.MarkFlagRequired("out")
}

func runRender(cmd *cobra.Command, args []string) error {
	gradientData, err := os.ReadFile(renderFlags.gradientFile)
	if err != nil {
		return err
	}
	g, err := gradient.Load(gradientData)
	if err != nil {
		return err
	}

	req := render.Request{
		Source: render.Source{
			SinglePath:    renderFlags.sourceFile,
			CatalogFolder: renderFlags.catalogFolder,
		},
		West: renderFlags.west, North: renderFlags.north, East: renderFlags.east, South: renderFlags.south,
		Gradient:        g,
		ScaleToCropArea: renderFlags.scaleToCropArea,
		ExportScale:     renderFlags.scale,
		Budget:          assembly.DefaultBudget(),
		Timeout:         time.Duration(renderFlags.timeoutSeconds) * time.Second,
		OutputPath:      renderFlags.outputPath,
		OutputKind:      export.Kind(renderFlags.outputKind),
	}
	if renderFlags.hasRangeOverride {
		req.RangeOverride = &render.RangeOverride{Min: renderFlags.rangeMin, Max: renderFlags.rangeMax}
	}

	reporter := progress.NewReporter(8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range reporter.Updates() {
			fmt.Printf("\r%-12s %3d%%", u.Phase, u.Percent)
		}
		fmt.Println()
	}()

	outcome, err := render.Run(context.Background(), req, reporter)
	reporter.Close()
	<-done
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d)\n", outcome.OutputPath, outcome.Width, outcome.Height)
	return nil
}
