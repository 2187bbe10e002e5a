package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

// SplitImage groups all annotation rows of one image gathered from the
// input CSV files
type SplitImage struct {
	// Path is the image file the annotations belong to
	Path string
	// Base is the flattened unique name used for the image in the output,
	// built from the directory path so images with equal file names from
	// different directories do not collide
	Base string
	// Records are the image's bounding box annotations
	Records []Record
}

// SplitOptions configure a train/val split of a bounding box dataset
type SplitOptions struct {
	// Percentage is the fraction of images assigned to the train split
	Percentage float64
	// Seed makes the image shuffle reproducible
	Seed int64
	// FilterDense drops the most frequent class before picking images, so
	// a background class present in nearly every image does not pull all
	// images into the pool
	FilterDense bool
	// InputFormat is the image extension of the annotated images
	InputFormat string
	// OutputFormat is the image extension written to the split directories
	OutputFormat string
	// OutputDir receives the train and val directories and their CSVs
	OutputDir string
}

// SplitResult lists the files written by a completed split
type SplitResult struct {
	// TrainCSV and ValCSV are the annotation files of the two splits
	TrainCSV string
	ValCSV   string
	// TrainImages and ValImages are the image files written per split
	TrainImages []string
	ValImages   []string
}

// Gather reads annotation CSVs and groups their rows per annotated image.
// The returned images are sorted by base name so callers see a
// deterministic order regardless of the input file order.
func Gather(csvPaths []string, imageFormat string) ([]SplitImage, error) {

	byBase := make(map[string]*SplitImage)

	for _, path := range csvPaths {

		records, err := ReadRecords(path)

		if err != nil {
			return nil, err
		}

		for _, rec := range records {

			base := flatBase(rec.ImageID, imageFormat)

			img, ok := byBase[base]

			if !ok {
				img = &SplitImage{Path: rec.ImageID, Base: base}
				byBase[base] = img
			}

			img.Records = append(img.Records, rec)
		}
	}

	images := make([]SplitImage, 0, len(byBase))

	for _, img := range byBase {
		images = append(images, *img)
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Base < images[j].Base
	})

	return images, nil
}

// flatBase flattens an image path into a unique single level name by
// folding the directory separators into underscores and stripping the
// image format extension
func flatBase(imageID, imageFormat string) string {

	base := strings.TrimSuffix(filepath.Base(imageID), NormalizeExt(imageFormat))

	dir := filepath.Dir(imageID)

	if dir == "." || dir == string(filepath.Separator) {
		return base
	}

	dir = strings.TrimPrefix(dir, string(filepath.Separator))

	return strings.ReplaceAll(dir, string(filepath.Separator), "_") + "_" + base
}

// ImagesPerClass maps each class label to the sorted unique image bases
// holding at least one box of that class
func ImagesPerClass(images []SplitImage) map[string][]string {

	perClass := make(map[string]map[string]bool)

	for _, img := range images {
		for _, rec := range img.Records {

			if perClass[rec.Label] == nil {
				perClass[rec.Label] = make(map[string]bool)
			}

			perClass[rec.Label][img.Base] = true
		}
	}

	out := make(map[string][]string, len(perClass))

	for label, bases := range perClass {

		list := make([]string, 0, len(bases))

		for base := range bases {
			list = append(list, base)
		}

		sort.Strings(list)
		out[label] = list
	}

	return out
}

// FilterDense removes the class appearing in the most images from a per
// class map produced by ImagesPerClass.  Ties are broken towards the
// lexicographically smallest label.
func FilterDense(perClass map[string][]string) map[string][]string {

	labels := make([]string, 0, len(perClass))

	for label := range perClass {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	dense := ""

	for _, label := range labels {
		if dense == "" || len(perClass[label]) > len(perClass[dense]) {
			dense = label
		}
	}

	out := make(map[string][]string, len(perClass))

	for label, bases := range perClass {
		if label != dense {
			out[label] = bases
		}
	}

	return out
}

// Split gathers the given annotation CSVs, shuffles the annotated images
// and divides them into train and val splits.  Each split receives a copy
// of its images, re-encoded to the requested output format, and a CSV whose
// image_id column points at the copied files.
func Split(csvPaths []string, opts SplitOptions) (*SplitResult, error) {

	if opts.Percentage < 0 || opts.Percentage > 1 {
		return nil, fmt.Errorf("train percentage %v out of range [0,1]", opts.Percentage)
	}

	images, err := Gather(csvPaths, opts.InputFormat)

	if err != nil {
		return nil, err
	}

	byBase := make(map[string]SplitImage, len(images))

	for _, img := range images {
		byBase[img.Base] = img
	}

	perClass := ImagesPerClass(images)

	if opts.FilterDense {
		perClass = FilterDense(perClass)
	}

	pool := poolOf(perClass)

	rng := rand.New(rand.NewSource(opts.Seed))

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	nTrain := int(math.Floor(opts.Percentage * float64(len(pool))))

	res := &SplitResult{}

	res.TrainCSV, res.TrainImages, err = writeSplit("train", pool[:nTrain], byBase, opts)

	if err != nil {
		return nil, err
	}

	res.ValCSV, res.ValImages, err = writeSplit("val", pool[nTrain:], byBase, opts)

	if err != nil {
		return nil, err
	}

	return res, nil
}

// poolOf returns the sorted union of image bases across all classes
func poolOf(perClass map[string][]string) []string {

	seen := make(map[string]bool)

	for _, bases := range perClass {
		for _, base := range bases {
			seen[base] = true
		}
	}

	pool := make([]string, 0, len(seen))

	for base := range seen {
		pool = append(pool, base)
	}

	sort.Strings(pool)

	return pool
}

// writeSplit copies the images of one split into its directory and writes
// the split's annotation CSV
func writeSplit(name string, bases []string, byBase map[string]SplitImage,
	opts SplitOptions) (string, []string, error) {

	dir := filepath.Join(opts.OutputDir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("error creating %s directory: %w", name, err)
	}

	var (
		rows   []Record
		copied []string
	)

	for _, base := range bases {

		img := byBase[base]

		dst := filepath.Join(dir, base+NormalizeExt(opts.OutputFormat))

		if err := reencode(img.Path, dst); err != nil {
			return "", nil, err
		}

		copied = append(copied, dst)

		for _, rec := range img.Records {
			rec.ImageID = dst
			rows = append(rows, rec)
		}
	}

	csvPath := filepath.Join(opts.OutputDir, name+".csv")

	if err := WriteRecords(csvPath, rows); err != nil {
		return "", nil, err
	}

	return csvPath, copied, nil
}

// reencode reads an image and writes it to dst in the format implied by
// the dst extension, keeping the source bit depth
func reencode(src, dst string) error {

	mat := gocv.IMRead(src, gocv.IMReadUnchanged)

	if mat.Empty() {
		return fmt.Errorf("error reading image %s", src)
	}

	defer mat.Close()

	if ok := gocv.IMWrite(dst, mat); !ok {
		return fmt.Errorf("error writing image %s", dst)
	}

	return nil
}
