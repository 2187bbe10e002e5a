package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const usage = `lumi works with object detection datasets kept as bounding box
CSV files.

Usage:

  lumi <command> [options]

Commands:

  confusion_matrix  Compare predicted boxes against ground truth boxes
  split_train_val   Split annotated images into train and val datasets
  mosaic            Stitch a directory of images into one tiled image
  overlay_bbs       Draw bounding box annotations onto their images

Run "lumi <command> -h" for the options of one command.
`

func main() {

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(os.Stdout, os.Args[1:]); err != nil {

		code := 1

		var exitErr *ExitError

		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

// ExitError is an error carrying the process exit code to finish with
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError
func (e *ExitError) Error() string {
	return e.Message
}

// run dispatches the subcommand named by the first argument.  It is split
// from main so tests can drive the commands without spawning a process.
func run(stdout io.Writer, args []string) error {

	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "confusion_matrix":
		return runConfusionMatrix(stdout, rest)
	case "split_train_val":
		return runSplitTrainVal(stdout, rest)
	case "mosaic":
		return runMosaic(stdout, rest)
	case "overlay_bbs":
		return runOverlayBBs(stdout, rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}

	return &ExitError{
		Code:    2,
		Message: fmt.Sprintf("unknown command %q, run lumi help for usage", cmd),
	}
}

// parseArgs parses a command's flags.  Usage problems become exit code 2
// and -h stops the command without an error, after the flag package has
// printed the defaults.
func parseArgs(fs *flag.FlagSet, args []string) (stop bool, err error) {

	if err := fs.Parse(args); err != nil {

		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}

		return true, &ExitError{Code: 2, Message: err.Error()}
	}

	return false, nil
}

// missingFlag reports a required flag that was not given
func missingFlag(name string) error {
	return &ExitError{
		Code:    2,
		Message: fmt.Sprintf("flag --%s is required", name),
	}
}
