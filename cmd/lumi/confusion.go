package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/czbiohub/lumi"
	"github.com/czbiohub/lumi/confusion"
	"github.com/czbiohub/lumi/dataset"
)

// runConfusionMatrix compares a predictions CSV against a ground truth CSV
// and writes the confusion matrix as text and optionally as a figure
func runConfusionMatrix(stdout io.Writer, args []string) error {

	fs := flag.NewFlagSet("confusion_matrix", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var (
		gtCSV = fs.String("groundtruth_csv", "",
			"Ground truth bounding box CSV file")
		predCSV = fs.String("predicted_csv", "",
			"Predicted bounding box CSV file with a prob column")
		outTxt = fs.String("output_txt", "",
			"Write the text report to this file instead of stdout")
		outFig = fs.String("output_fig", "",
			"Save the confusion matrix figure to this .png, .pdf, .eps or .svg file")
		classesJSON = fs.String("classes_json", "",
			"JSON file with the class list, default is the labels found in the data")
		iou = fs.Float64("iou_threshold", confusion.DefaultIoUThreshold,
			"Minimum IoU for a predicted box to match a ground truth box")
		conf = fs.Float64("confidence_threshold", confusion.DefaultConfidenceThreshold,
			"Drop predictions with a probability below this")
		format = fs.String("input_image_format", "",
			"Image file extension stripped when pairing rows by image")
		numCPUs = fs.Int("num_cpus", 0,
			"Number of images compared in parallel, 0 uses every CPU")
		keepUnmatched = fs.Bool("keep_unmatched", false,
			"Keep the Unmatched row and column in the figure")
		binaryJSON = fs.String("binary_classes", "",
			"JSON file grouping the classes into two, for a binary confusion matrix")
	)

	if stop, err := parseArgs(fs, args); stop {
		return err
	}

	if *gtCSV == "" {
		return missingFlag("groundtruth_csv")
	}

	if *predCSV == "" {
		return missingFlag("predicted_csv")
	}

	if *iou <= 0 || *iou > 1 {
		return &ExitError{Code: 2,
			Message: fmt.Sprintf("iou_threshold %v out of range (0,1]", *iou)}
	}

	if *conf < 0 || *conf > 1 {
		return &ExitError{Code: 2,
			Message: fmt.Sprintf("confidence_threshold %v out of range [0,1]", *conf)}
	}

	truths, err := dataset.ReadRecords(*gtCSV)

	if err != nil {
		return fmt.Errorf("error reading ground truth: %w", err)
	}

	dets, err := dataset.ReadDetections(*predCSV)

	if err != nil {
		return fmt.Errorf("error reading predictions: %w", err)
	}

	slog.Info("annotations loaded", "groundtruth", len(truths),
		"predicted", len(dets))

	ev := confusion.NewEvaluator()
	ev.IoUThreshold = *iou
	ev.ConfidenceThreshold = *conf
	ev.ImageFormat = *format
	ev.Workers = *numCPUs

	if *classesJSON != "" {

		classes, err := lumi.LoadClasses(*classesJSON)

		if err != nil {
			return err
		}

		ev.Classes = classes
	}

	m, err := ev.Evaluate(truths, dets)

	if err != nil {
		return err
	}

	if *binaryJSON != "" {

		bc, err := lumi.LoadBinaryClasses(*binaryJSON)

		if err != nil {
			return err
		}

		if m, err = m.CollapseBinary(bc); err != nil {
			return err
		}
	}

	out := stdout

	if *outTxt != "" {

		f, err := os.Create(*outTxt)

		if err != nil {
			return fmt.Errorf("error creating %s: %w", *outTxt, err)
		}

		defer f.Close()
		out = f
	}

	fmt.Fprintf(out, "IoU threshold: %g, confidence threshold: %g\n\n",
		*iou, *conf)

	if err := confusion.Report(out, m); err != nil {
		return err
	}

	if *outFig != "" {

		if err := confusion.Plot(*outFig, m, *keepUnmatched); err != nil {
			return err
		}

		slog.Info("confusion matrix figure saved", "path", *outFig)
	}

	return nil
}
