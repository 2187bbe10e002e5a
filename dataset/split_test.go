package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestFlatBase(t *testing.T) {

	tests := []struct {
		name    string
		imageID string
		format  string
		want    string
	}{
		{"bare name", "img_1.png", ".png", "img_1"},
		{"relative dir", "run1/img_1.png", ".png", "run1_img_1"},
		{"absolute dir", "/data/run1/img_1.png", ".png", "data_run1_img_1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got := flatBase(tc.imageID, tc.format)

			if got != tc.want {
				t.Errorf("got base %q; want %q", got, tc.want)
			}
		})
	}
}

func TestGather(t *testing.T) {

	dir := t.TempDir()

	csvA := filepath.Join(dir, "a.csv")
	csvB := filepath.Join(dir, "b.csv")

	contentsA := "image_id,xmin,ymin,xmax,ymax,label\n" +
		"run1/img_1.png,0,0,5,5,cell\n" +
		"run1/img_1.png,10,10,15,15,ring\n"

	contentsB := "image_id,xmin,ymin,xmax,ymax,label\n" +
		"run2/img_1.png,0,0,5,5,cell\n"

	if err := os.WriteFile(csvA, []byte(contentsA), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	if err := os.WriteFile(csvB, []byte(contentsB), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	images, err := Gather([]string{csvA, csvB}, ".png")

	if err != nil {
		t.Fatalf("error gathering: %v", err)
	}

	if len(images) != 2 {
		t.Fatalf("got %d images; want 2", len(images))
	}

	// sorted by base, so run1 precedes run2
	if images[0].Base != "run1_img_1" {
		t.Errorf("got base %q; want %q", images[0].Base, "run1_img_1")
	}

	if len(images[0].Records) != 2 {
		t.Errorf("got %d records for run1_img_1; want 2", len(images[0].Records))
	}

	if images[1].Path != "run2/img_1.png" {
		t.Errorf("got path %q; want %q", images[1].Path, "run2/img_1.png")
	}
}

// splitImage is a fixture helper building a SplitImage with one box per
// given label
func splitImage(base string, labels ...string) SplitImage {

	img := SplitImage{Path: base + ".png", Base: base}

	for _, label := range labels {
		img.Records = append(img.Records, Record{
			ImageID: img.Path, XMax: 5, YMax: 5, Label: label,
		})
	}

	return img
}

func TestImagesPerClass(t *testing.T) {

	images := []SplitImage{
		splitImage("a", "bg", "cell"),
		splitImage("b", "bg", "cell"),
		splitImage("c", "bg", "ring"),
		splitImage("d", "bg"),
	}

	perClass := ImagesPerClass(images)

	if got := len(perClass["bg"]); got != 4 {
		t.Errorf("got %d images for bg; want 4", got)
	}

	if got := len(perClass["cell"]); got != 2 {
		t.Errorf("got %d images for cell; want 2", got)
	}

	if got := len(perClass["ring"]); got != 1 {
		t.Errorf("got %d images for ring; want 1", got)
	}
}

func TestFilterDense(t *testing.T) {

	images := []SplitImage{
		splitImage("a", "bg", "cell"),
		splitImage("b", "bg", "cell"),
		splitImage("c", "bg", "ring"),
		splitImage("d", "bg"),
	}

	perClass := FilterDense(ImagesPerClass(images))

	if _, ok := perClass["bg"]; ok {
		t.Errorf("densest class bg still present after filtering")
	}

	if len(perClass) != 2 {
		t.Errorf("got %d classes; want 2", len(perClass))
	}

	pool := poolOf(perClass)

	if len(pool) != 3 {
		t.Errorf("got pool %v; want 3 images", pool)
	}
}

// writeTestImage writes a small image fixture to the given path
func writeTestImage(t *testing.T, path string) {

	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 64, 32, 0),
		32, 32, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		t.Fatalf("error writing image fixture %s", path)
	}
}

func TestSplit(t *testing.T) {

	dir := t.TempDir()

	imgDir := filepath.Join(dir, "imgs")

	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("error creating image dir: %v", err)
	}

	var rows strings.Builder
	rows.WriteString("image_id,xmin,ymin,xmax,ymax,label\n")

	for i := 0; i < 5; i++ {
		path := filepath.Join(imgDir, fmt.Sprintf("img_%d.png", i))
		writeTestImage(t, path)
		rows.WriteString(fmt.Sprintf("%s,0,0,5,5,cell\n", path))
	}

	csvPath := filepath.Join(dir, "labels.csv")

	if err := os.WriteFile(csvPath, []byte(rows.String()), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	outDir := filepath.Join(dir, "out")

	res, err := Split([]string{csvPath}, SplitOptions{
		Percentage:   0.8,
		Seed:         7,
		InputFormat:  ".png",
		OutputFormat: ".png",
		OutputDir:    outDir,
	})

	if err != nil {
		t.Fatalf("error splitting: %v", err)
	}

	if len(res.TrainImages) != 4 {
		t.Errorf("got %d train images; want 4", len(res.TrainImages))
	}

	if len(res.ValImages) != 1 {
		t.Errorf("got %d val images; want 1", len(res.ValImages))
	}

	for _, path := range append(res.TrainImages, res.ValImages...) {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("split image %s not written: %v", path, err)
		}
	}

	train, err := ReadRecords(res.TrainCSV)

	if err != nil {
		t.Fatalf("error reading train csv: %v", err)
	}

	if len(train) != 4 {
		t.Errorf("got %d train rows; want 4", len(train))
	}

	for _, rec := range train {
		if !strings.HasPrefix(rec.ImageID, filepath.Join(outDir, "train")) {
			t.Errorf("train row image_id %q outside train directory", rec.ImageID)
		}
	}

	// the same seed reproduces the same partition
	res2, err := Split([]string{csvPath}, SplitOptions{
		Percentage:   0.8,
		Seed:         7,
		InputFormat:  ".png",
		OutputFormat: ".png",
		OutputDir:    filepath.Join(dir, "out2"),
	})

	if err != nil {
		t.Fatalf("error splitting again: %v", err)
	}

	if filepath.Base(res2.ValImages[0]) != filepath.Base(res.ValImages[0]) {
		t.Errorf("got val image %s; want %s with equal seeds",
			res2.ValImages[0], res.ValImages[0])
	}
}

func TestSplitFilterDense(t *testing.T) {

	dir := t.TempDir()

	imgDir := filepath.Join(dir, "imgs")

	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("error creating image dir: %v", err)
	}

	// bg appears in every image, so filtering drops image d from the pool
	labels := map[string][]string{
		"a": {"bg", "cell"},
		"b": {"bg", "cell"},
		"c": {"bg", "ring"},
		"d": {"bg"},
	}

	var rows strings.Builder
	rows.WriteString("image_id,xmin,ymin,xmax,ymax,label\n")

	for name, classes := range labels {
		path := filepath.Join(imgDir, name+".png")
		writeTestImage(t, path)
		for _, class := range classes {
			rows.WriteString(fmt.Sprintf("%s,0,0,5,5,%s\n", path, class))
		}
	}

	csvPath := filepath.Join(dir, "labels.csv")

	if err := os.WriteFile(csvPath, []byte(rows.String()), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	res, err := Split([]string{csvPath}, SplitOptions{
		Percentage:   0.6,
		Seed:         1,
		FilterDense:  true,
		InputFormat:  ".png",
		OutputFormat: ".png",
		OutputDir:    filepath.Join(dir, "out"),
	})

	if err != nil {
		t.Fatalf("error splitting: %v", err)
	}

	total := len(res.TrainImages) + len(res.ValImages)

	if total != 3 {
		t.Fatalf("got %d images across splits; want 3", total)
	}

	for _, path := range append(res.TrainImages, res.ValImages...) {
		if strings.HasSuffix(path, "_d.png") {
			t.Errorf("image d included despite dense class filtering")
		}
	}

	if len(res.TrainImages) != 1 {
		t.Errorf("got %d train images; want 1", len(res.TrainImages))
	}
}
