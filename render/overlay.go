package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/czbiohub/lumi"
	"github.com/czbiohub/lumi/dataset"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
)

// OverlayOptions configure writing annotated copies of a dataset's images
type OverlayOptions struct {
	// ImageFormat is the extension of the annotated images, used to name
	// the output files.  When empty the extension of each image is kept.
	ImageFormat string
	// OutputDir receives the annotated copies
	OutputDir string
	// LineThickness of the box borders, defaulting to 2
	LineThickness int
	// Font renders the class labels
	Font Font
	// TTFFont optionally names a TTF font file used for the labels in
	// place of the built in Hershey font
	TTFFont string
	// TTFSize is the point size of the TTF font, defaulting to 14
	TTFSize float64
}

// OverlayAll draws every image's bounding boxes onto a copy of the image,
// written into the output directory as <name>_bb_labels<ext>.  It returns
// the paths written, sorted by source image.
func OverlayAll(records []dataset.Record, opts OverlayOptions) ([]string, error) {

	if len(records) == 0 {
		return nil, nil
	}

	if opts.LineThickness < 1 {
		opts.LineThickness = 2
	}

	if (opts.Font == Font{}) {
		opts.Font = DefaultFont()
	}

	var (
		face font.Face
		err  error
	)

	if opts.TTFFont != "" {

		size := opts.TTFSize

		if size == 0 {
			size = 14
		}

		face, err = LoadTTF(opts.TTFFont, size)

		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	groups := make(map[string][]dataset.Record)

	for _, rec := range records {
		groups[rec.ImageID] = append(groups[rec.ImageID], rec)
	}

	paths := make([]string, 0, len(groups))

	for path := range groups {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	// class colors follow the sorted label set so they are stable across
	// images
	classIdx := lumi.ClassIndex(dataset.Labels(records, nil))

	written := make([]string, 0, len(paths))

	for _, path := range paths {

		out, err := annotateImage(path, groups[path], classIdx, face, opts)

		if err != nil {
			return nil, err
		}

		written = append(written, out)
	}

	return written, nil
}

// annotateImage draws the boxes of one image and writes the annotated copy
func annotateImage(path string, records []dataset.Record,
	classIdx map[string]int, face font.Face, opts OverlayOptions) (string, error) {

	img := gocv.IMRead(path, gocv.IMReadColor)

	if img.Empty() {
		return "", fmt.Errorf("error reading image %s", path)
	}

	defer img.Close()

	if face != nil {
		if err := overlayTTF(&img, records, classIdx, face, opts.LineThickness); err != nil {
			return "", err
		}
	} else {
		Boxes(&img, records, classIdx, opts.Font, opts.LineThickness)
	}

	out := outputName(path, opts)

	if ok := gocv.IMWrite(out, img); !ok {
		return "", fmt.Errorf("error writing image %s", out)
	}

	return out, nil
}

// outputName builds the output path of an annotated image copy
func outputName(path string, opts OverlayOptions) string {

	ext := dataset.NormalizeExt(opts.ImageFormat)

	if ext == "" {
		ext = filepath.Ext(path)
	}

	base := strings.TrimSuffix(filepath.Base(path), ext)

	return filepath.Join(opts.OutputDir, base+"_bb_labels"+ext)
}
