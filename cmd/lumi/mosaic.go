package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/czbiohub/lumi/mosaic"
)

// runMosaic stitches every image of one format in a directory into a
// single tiled image
func runMosaic(stdout io.Writer, args []string) error {

	fs := flag.NewFlagSet("mosaic", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var (
		imDir = fs.String("im_dir", "",
			"Directory holding the images to stitch")
		tileSize = fs.String("tile_size", "",
			"Tile size as rows,cols, default is the size of the first image")
		fill = fs.String("fill_value", "",
			`Intensity of empty tiles, a number or "first" for the first pixel of the first image, default 128`)
		outPNG = fs.String("output_png", "",
			"File the stitched image is written to")
		format = fs.String("fmt", "",
			"Image file extension to stitch, for example png")
	)

	if stop, err := parseArgs(fs, args); stop {
		return err
	}

	if *imDir == "" {
		return missingFlag("im_dir")
	}

	if *outPNG == "" {
		return missingFlag("output_png")
	}

	if *format == "" {
		return missingFlag("fmt")
	}

	opts := mosaic.Options{Fill: *fill}

	if *tileSize != "" {

		rows, cols, err := parseTileSize(*tileSize)

		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}

		opts.TileRows, opts.TileCols = rows, cols
	}

	rows, cols, err := mosaic.Save(*imDir, *format, *outPNG, opts)

	if err != nil {
		return err
	}

	slog.Info("mosaic saved", "path", *outPNG, "rows", rows, "cols", cols)

	return nil
}

// parseTileSize reads a tile size given as "rows,cols"
func parseTileSize(s string) (int, int, error) {

	parts := strings.Split(s, ",")

	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("tile size %q is not rows,cols", s)
	}

	rows, err := strconv.Atoi(strings.TrimSpace(parts[0]))

	if err != nil {
		return 0, 0, fmt.Errorf("tile size %q is not rows,cols", s)
	}

	cols, err := strconv.Atoi(strings.TrimSpace(parts[1]))

	if err != nil {
		return 0, 0, fmt.Errorf("tile size %q is not rows,cols", s)
	}

	if rows < 1 || cols < 1 {
		return 0, 0, fmt.Errorf("tile size %q is not positive", s)
	}

	return rows, cols, nil
}
