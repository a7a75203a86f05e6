// Command flowrender renders a workflow JSON file to a PNG image without
// starting the editor. Useful for previews and CI artifacts.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"flow-studio/internal/render"
	"flow-studio/internal/scene"
	"flow-studio/internal/workflow"
	"flow-studio/pkg/geometry"
)

func main() {
	in := flag.String("in", "", "Path to workflow JSON file")
	out := flag.String("out", "", "Output PNG path (default: input name with .png)")
	width := flag.Int("width", 1600, "Output image width in pixels")
	height := flag.Int("height", 1200, "Output image height in pixels")
	grid := flag.Bool("grid", false, "Draw the background grid")
	flag.Parse()

	if *in == "" {
		fmt.Println("Usage: flowrender -in <workflow.json> [-out <image.png>] [-width 1600] [-height 1200] [-grid]")
		os.Exit(1)
	}
	if *width <= 0 || *height <= 0 {
		fmt.Fprintln(os.Stderr, "Width and height must be positive")
		os.Exit(1)
	}

	doc, err := workflow.Load(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load workflow: %v\n", err)
		os.Exit(1)
	}

	s := scene.New()
	if err := doc.Apply(s); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid workflow: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %q: %d nodes, %d connections\n", doc.Name, s.NodeCount(), s.ConnectionCount())

	bounds, ok := s.ContentBounds()
	if !ok {
		fmt.Fprintln(os.Stderr, "Workflow has no nodes, nothing to render")
		os.Exit(1)
	}

	img := render.NewFrame(render.State{
		Scene:    s,
		Viewport: geometry.FitTo(bounds, float64(*width), float64(*height)),
		ShowGrid: *grid,
	}, *width, *height)

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".png"
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%dx%d)\n", outPath, *width, *height)
}
