package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/czbiohub/lumi/dataset"
)

// runSplitTrainVal splits the images annotated by one or more CSV files
// into a train and a val dataset
func runSplitTrainVal(stdout io.Writer, args []string) error {

	fs := flag.NewFlagSet("split_train_val", flag.ContinueOnError)
	fs.SetOutput(stdout)

	fs.Usage = func() {
		fmt.Fprint(stdout, `
Usage:

  lumi split_train_val [options] CSV...

Splits the images annotated by the given bounding box CSV files into a
train and a val dataset, each a directory of images plus one CSV with
their annotations.

Options:

`)
		fs.PrintDefaults()
	}

	var (
		percentage = fs.Float64("percentage", 0.8,
			"Fraction of images put into the train split")
		seed = fs.Int64("random_seed", 42,
			"Seed of the image shuffle")
		filterDense = fs.Bool("filter_dense_anns", false,
			"Drop the most annotated class before picking images")
		inFormat = fs.String("input_image_format", "",
			"Image file extension of the annotated images")
		outFormat = fs.String("output_image_format", "",
			"Image file extension written to the splits, default keeps the input format")
		outputDir = fs.String("output_dir", "",
			"Directory receiving the train and val datasets")
	)

	if stop, err := parseArgs(fs, args); stop {
		return err
	}

	if fs.NArg() == 0 {
		return &ExitError{Code: 2, Message: "no annotation CSV files given"}
	}

	if *inFormat == "" {
		return missingFlag("input_image_format")
	}

	if *outputDir == "" {
		return missingFlag("output_dir")
	}

	if *percentage < 0 || *percentage > 1 {
		return &ExitError{Code: 2,
			Message: fmt.Sprintf("percentage %v out of range [0,1]", *percentage)}
	}

	if *outFormat == "" {
		*outFormat = *inFormat
	}

	res, err := dataset.Split(fs.Args(), dataset.SplitOptions{
		Percentage:   *percentage,
		Seed:         *seed,
		FilterDense:  *filterDense,
		InputFormat:  *inFormat,
		OutputFormat: *outFormat,
		OutputDir:    *outputDir,
	})

	if err != nil {
		return err
	}

	slog.Info("dataset split written",
		"train_csv", res.TrainCSV, "train_images", len(res.TrainImages),
		"val_csv", res.ValCSV, "val_images", len(res.ValImages))

	return nil
}
