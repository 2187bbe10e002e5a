package main

import (
	"flag"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/czbiohub/lumi/dataset"
	"github.com/czbiohub/lumi/render"
)

// runOverlayBBs draws each image's bounding box annotations onto a copy
// of the image
func runOverlayBBs(stdout io.Writer, args []string) error {

	fs := flag.NewFlagSet("overlay_bbs", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var (
		imDir = fs.String("im_dir", "",
			"Directory holding the annotated images")
		csvPath = fs.String("csv_path", "",
			"Bounding box CSV file to draw")
		outDir = fs.String("output_dir", "",
			"Directory the annotated copies are written to")
		format = fs.String("input_image_format", "",
			"Image file extension of the annotated images")
		ttfFont = fs.String("ttf_font", "",
			"TTF font file for the label text, default uses the built in Hershey font")
		ttfSize = fs.Float64("ttf_size", 14,
			"Point size of the TTF label text")
	)

	if stop, err := parseArgs(fs, args); stop {
		return err
	}

	if *imDir == "" {
		return missingFlag("im_dir")
	}

	if *csvPath == "" {
		return missingFlag("csv_path")
	}

	if *outDir == "" {
		return missingFlag("output_dir")
	}

	if *format == "" {
		return missingFlag("input_image_format")
	}

	records, err := dataset.ReadRecords(*csvPath)

	if err != nil {
		return err
	}

	// image_id values may carry paths from the machine that annotated the
	// dataset, so resolve every row to its file under im_dir
	ext := dataset.NormalizeExt(*format)

	for i := range records {
		base := dataset.ImageKey(records[i].ImageID, *format)
		records[i].ImageID = filepath.Join(*imDir, base+ext)
	}

	written, err := render.OverlayAll(records, render.OverlayOptions{
		ImageFormat: *format,
		OutputDir:   *outDir,
		TTFFont:     *ttfFont,
		TTFSize:     *ttfSize,
	})

	if err != nil {
		return err
	}

	slog.Info("annotated images written", "count", len(written),
		"dir", *outDir)

	return nil
}
