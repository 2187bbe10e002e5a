// Package dataset reads and writes object detection annotations kept in the
// lumi CSV format.  Ground truth files carry the columns
// image_id,xmin,ymin,xmax,ymax,label and prediction files add a prob column
// holding the model confidence score.  Files are header keyed so column
// order does not matter and unknown columns, such as a pandas index column,
// are ignored.  A file missing any of its required columns is rejected,
// since header keyed decoding would otherwise fill the column with zero
// values.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/czbiohub/lumi"
	"github.com/gocarina/gocsv"
)

// Record is one bounding box annotation row in a ground truth CSV
type Record struct {
	// ImageID identifies the image the box belongs to, usually a file path
	ImageID string `csv:"image_id"`
	// XMin, YMin are the top left corner of the bounding box
	XMin float32 `csv:"xmin"`
	YMin float32 `csv:"ymin"`
	// XMax, YMax are the bottom right corner of the bounding box
	XMax float32 `csv:"xmax"`
	YMax float32 `csv:"ymax"`
	// Label is the class label of the object in the box
	Label string `csv:"label"`
}

// Box returns the bounding box of the annotation
func (r Record) Box() lumi.Box {
	return lumi.NewBox(r.XMin, r.YMin, r.XMax, r.YMax)
}

// Detection is a Record plus the model's confidence score for the box
type Detection struct {
	Record
	// Prob is the confidence score of the prediction in the range 0 to 1
	Prob float32 `csv:"prob"`
}

var (
	// recordColumns are the headers a ground truth CSV must carry
	recordColumns = []string{"image_id", "xmin", "ymin", "xmax", "ymax", "label"}
	// detectionColumns add the confidence score column predictions carry
	detectionColumns = []string{"image_id", "xmin", "ymin", "xmax", "ymax",
		"label", "prob"}
)

// checkColumns verifies the header row of an annotation CSV carries every
// required column
func checkColumns(path string, required []string) error {

	f, err := os.Open(path)

	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	header, err := csv.NewReader(f).Read()

	if err == io.EOF {
		return fmt.Errorf("%s is empty", path)
	}

	if err != nil {
		return fmt.Errorf("error reading %s header: %w", path, err)
	}

	have := make(map[string]bool, len(header))

	for _, name := range header {
		have[strings.TrimSpace(name)] = true
	}

	var missing []string

	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s is missing required columns %s",
			path, strings.Join(missing, ", "))
	}

	return nil
}

// ReadRecords reads a ground truth annotation CSV
func ReadRecords(path string) ([]Record, error) {

	if err := checkColumns(path, recordColumns); err != nil {
		return nil, err
	}

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	var records []Record

	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	for i, rec := range records {
		if err := validateRecord(rec, i, path); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// ReadDetections reads a prediction annotation CSV
func ReadDetections(path string) ([]Detection, error) {

	if err := checkColumns(path, detectionColumns); err != nil {
		return nil, err
	}

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	var dets []Detection

	if err := gocsv.UnmarshalFile(f, &dets); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	for i, det := range dets {

		if err := validateRecord(det.Record, i, path); err != nil {
			return nil, err
		}

		if det.Prob < 0 || det.Prob > 1 {
			return nil, fmt.Errorf("%s row %d: prob %v out of range [0,1]",
				path, i+2, det.Prob)
		}
	}

	return dets, nil
}

// validateRecord checks a single annotation row.  The row number reported in
// errors counts the header line so it matches the line number in the file.
func validateRecord(r Record, idx int, path string) error {

	if r.ImageID == "" {
		return fmt.Errorf("%s row %d: missing image_id", path, idx+2)
	}

	if r.Box().Empty() {
		return fmt.Errorf("%s row %d: box corners are inverted", path, idx+2)
	}

	return nil
}

// WriteRecords writes ground truth annotations as a lumi CSV
func WriteRecords(path string, records []Record) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	return nil
}

// WriteDetections writes prediction annotations as a lumi CSV
func WriteDetections(path string, dets []Detection) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	defer f.Close()

	if err := gocsv.MarshalFile(&dets, f); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	return nil
}

// NormalizeExt ensures an image format extension carries a leading dot, so
// both "png" and ".png" are accepted wherever a format flag is passed in
func NormalizeExt(format string) string {

	if format == "" || strings.HasPrefix(format, ".") {
		return format
	}

	return "." + format
}

// ImageKey normalizes an image identifier for matching rows between ground
// truth and prediction files that may reference the same image through
// different directories.  The key is the file base name with the given image
// format extension stripped.
func ImageKey(imageID, imageFormat string) string {

	key := filepath.Base(imageID)

	if format := NormalizeExt(imageFormat); format != "" {
		key = strings.TrimSuffix(key, format)
	}

	return key
}

// GroupRecords buckets annotations per normalized image key
func GroupRecords(records []Record, imageFormat string) map[string][]Record {

	groups := make(map[string][]Record)

	for _, rec := range records {
		key := ImageKey(rec.ImageID, imageFormat)
		groups[key] = append(groups[key], rec)
	}

	return groups
}

// GroupDetections buckets predictions per normalized image key
func GroupDetections(dets []Detection, imageFormat string) map[string][]Detection {

	groups := make(map[string][]Detection)

	for _, det := range dets {
		key := ImageKey(det.ImageID, imageFormat)
		groups[key] = append(groups[key], det)
	}

	return groups
}

// Labels returns the sorted unique class labels present in the given ground
// truth and prediction annotations.  It is used to build the class list when
// no classes file is supplied.
func Labels(records []Record, dets []Detection) []string {

	seen := make(map[string]bool)

	for _, rec := range records {
		seen[rec.Label] = true
	}

	for _, det := range dets {
		seen[det.Label] = true
	}

	labels := make([]string, 0, len(seen))

	for label := range seen {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	return labels
}
