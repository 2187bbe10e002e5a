// Package mosaic stitches a directory of images into one tiled sheet, a
// quick way to eyeball a whole dataset at once.
package mosaic

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/czbiohub/lumi/dataset"
	"github.com/maruel/natural"
	"gocv.io/x/gocv"
)

// DefaultFill is the intensity of the cells no image covers
const DefaultFill = 128

// FillFirst selects the top left pixel of the first image as fill value
const FillFirst = "first"

// Options configure a mosaic assembly
type Options struct {
	// TileRows, TileCols is the size every image is resized to.  When
	// either is zero the size of the first image is used.
	TileRows int
	TileCols int
	// Fill sets the intensity of the cells no image covers.  "first"
	// takes the top left pixel of the first image, a number is used as
	// is, and empty selects the default of 128.
	Fill string
}

// Images lists the images of the given format in a directory in natural
// sort order, so img_2 comes before img_10
func Images(dir, format string) ([]string, error) {

	pattern := filepath.Join(dir, "*"+dataset.NormalizeExt(format))

	paths, err := filepath.Glob(pattern)

	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", pattern, err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s images in %s", format, dir)
	}

	sort.Sort(natural.StringSlice(paths))

	return paths, nil
}

// Assemble stitches the images into the smallest square grid holding all
// of them, each resized to the tile size.  Cells without an image keep the
// fill intensity.  The caller owns the returned Mat.
func Assemble(paths []string, opts Options) (gocv.Mat, error) {

	if len(paths) == 0 {
		return gocv.Mat{}, fmt.Errorf("no images to assemble")
	}

	first := gocv.IMRead(paths[0], gocv.IMReadAnyDepth|gocv.IMReadAnyColor)

	if first.Empty() {
		return gocv.Mat{}, fmt.Errorf("error reading image %s", paths[0])
	}

	defer first.Close()

	tiles := int(math.Ceil(math.Sqrt(float64(len(paths)))))

	rows, cols := opts.TileRows, opts.TileCols

	if rows < 1 || cols < 1 {
		rows, cols = first.Rows(), first.Cols()
	}

	fill, err := fillScalar(first, opts.Fill)

	if err != nil {
		return gocv.Mat{}, err
	}

	sheet := gocv.NewMatWithSizeFromScalar(fill, tiles*rows, tiles*cols,
		first.Type())

	for i, path := range paths {
		if err := placeTile(&sheet, path, i, tiles, rows, cols); err != nil {
			sheet.Close()
			return gocv.Mat{}, err
		}
	}

	return sheet, nil
}

// placeTile reads one image, resizes it to the tile size and copies it
// into its grid cell, filling the grid row by row
func placeTile(sheet *gocv.Mat, path string, idx, tiles, rows, cols int) error {

	img := gocv.IMRead(path, gocv.IMReadAnyDepth|gocv.IMReadAnyColor)

	if img.Empty() {
		return fmt.Errorf("error reading image %s", path)
	}

	defer img.Close()

	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(img, &resized, image.Pt(cols, rows), 0, 0,
		gocv.InterpolationLinear)

	r := idx / tiles
	c := idx % tiles

	cell := sheet.Region(image.Rect(c*cols, r*rows, (c+1)*cols, (r+1)*rows))
	defer cell.Close()

	resized.CopyTo(&cell)

	return nil
}

// fillScalar resolves the fill option against the first image
func fillScalar(first gocv.Mat, fill string) (gocv.Scalar, error) {

	switch fill {
	case "":
		return gocv.NewScalar(DefaultFill, DefaultFill, DefaultFill,
			DefaultFill), nil

	case FillFirst:
		return firstPixel(first)

	default:

		v, err := strconv.Atoi(fill)

		if err != nil {
			return gocv.Scalar{}, fmt.Errorf(
				"fill value %q is neither a number nor %q", fill, FillFirst)
		}

		fv := float64(v)

		return gocv.NewScalar(fv, fv, fv, fv), nil
	}
}

// firstPixel reads the top left pixel of an image as a fill scalar,
// keeping the per channel intensities for color images
func firstPixel(img gocv.Mat) (gocv.Scalar, error) {

	corner := img.Region(image.Rect(0, 0, 1, 1))
	defer corner.Close()

	// convert to double so any input bit depth reads the same way
	wide := gocv.NewMat()
	defer wide.Close()

	corner.ConvertTo(&wide, gocv.MatTypeCV64F)

	if wide.Channels() == 1 {
		v := wide.GetDoubleAt(0, 0)
		return gocv.NewScalar(v, v, v, v), nil
	}

	if wide.Channels() == 3 {
		vec := wide.GetVecdAt(0, 0)
		return gocv.NewScalar(vec[0], vec[1], vec[2], 0), nil
	}

	return gocv.Scalar{}, fmt.Errorf("unsupported channel count %d",
		img.Channels())
}

// Save assembles the mosaic of every image of the given format in dir and
// writes it to outPath.  It returns the mosaic's rows and columns.
func Save(dir, format, outPath string, opts Options) (int, int, error) {

	paths, err := Images(dir, format)

	if err != nil {
		return 0, 0, err
	}

	sheet, err := Assemble(paths, opts)

	if err != nil {
		return 0, 0, err
	}

	defer sheet.Close()

	if ok := gocv.IMWrite(outPath, sheet); !ok {
		return 0, 0, fmt.Errorf("error writing image %s", outPath)
	}

	return sheet.Rows(), sheet.Cols(), nil
}
