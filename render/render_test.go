package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/czbiohub/lumi/dataset"
	"gocv.io/x/gocv"
)

func TestClassColor(t *testing.T) {

	if ClassColor(0) != classColors[0] {
		t.Errorf("got %v for index 0; want first class color", ClassColor(0))
	}

	// indexes wrap around the palette
	if ClassColor(len(classColors)) != classColors[0] {
		t.Errorf("got %v for wrapped index; want first class color",
			ClassColor(len(classColors)))
	}

	if ClassColor(-3) != ClassColor(3) {
		t.Errorf("negative index does not mirror the positive one")
	}
}

func TestBoxes(t *testing.T) {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		64, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	records := []dataset.Record{
		{ImageID: "img.png", XMin: 10, YMin: 20, XMax: 40, YMax: 50, Label: "cell"},
	}

	classIdx := map[string]int{"cell": 0}

	Boxes(&img, records, classIdx, DefaultFont(), 2)

	// the black canvas must have been painted on
	sum := img.Sum()

	if sum.Val1+sum.Val2+sum.Val3 == 0 {
		t.Errorf("image untouched after drawing a box")
	}

	// the left border of the box carries the class color
	pixel := img.GetVecbAt(35, 10)

	if pixel[0] == 0 && pixel[1] == 0 && pixel[2] == 0 {
		t.Errorf("got unpainted pixel on the box border")
	}
}

func TestDetections(t *testing.T) {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		64, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []dataset.Detection{
		{
			Record: dataset.Record{ImageID: "img.png", XMin: 10, YMin: 20,
				XMax: 40, YMax: 50, Label: "cell"},
			Prob: 0.87,
		},
	}

	Detections(&img, dets, map[string]int{"cell": 0}, DefaultFont(), 2)

	sum := img.Sum()

	if sum.Val1+sum.Val2+sum.Val3 == 0 {
		t.Errorf("image untouched after drawing a detection")
	}
}

func TestOutputName(t *testing.T) {

	tests := []struct {
		name string
		path string
		opts OverlayOptions
		want string
	}{
		{
			name: "explicit format",
			path: "/data/img_1.png",
			opts: OverlayOptions{ImageFormat: ".png", OutputDir: "/out"},
			want: "/out/img_1_bb_labels.png",
		},
		{
			name: "format from path",
			path: "/data/img_1.tif",
			opts: OverlayOptions{OutputDir: "/out"},
			want: "/out/img_1_bb_labels.tif",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got := outputName(tc.path, tc.opts)

			if got != tc.want {
				t.Errorf("got %q; want %q", got, tc.want)
			}
		})
	}
}

func TestOverlayAll(t *testing.T) {

	dir := t.TempDir()

	imgPath := filepath.Join(dir, "img_1.png")

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0),
		64, 64, gocv.MatTypeCV8UC3)

	if ok := gocv.IMWrite(imgPath, mat); !ok {
		t.Fatalf("error writing image fixture")
	}

	mat.Close()

	records := []dataset.Record{
		{ImageID: imgPath, XMin: 5, YMin: 25, XMax: 30, YMax: 55, Label: "cell"},
		{ImageID: imgPath, XMin: 35, YMin: 25, XMax: 60, YMax: 55, Label: "ring"},
	}

	outDir := filepath.Join(dir, "out")

	written, err := OverlayAll(records, OverlayOptions{
		ImageFormat: ".png",
		OutputDir:   outDir,
	})

	if err != nil {
		t.Fatalf("error overlaying: %v", err)
	}

	if len(written) != 1 {
		t.Fatalf("got %d annotated images; want 1", len(written))
	}

	want := filepath.Join(outDir, "img_1_bb_labels.png")

	if written[0] != want {
		t.Errorf("got output %q; want %q", written[0], want)
	}

	info, err := os.Stat(written[0])

	if err != nil {
		t.Fatalf("annotated image not written: %v", err)
	}

	if info.Size() == 0 {
		t.Errorf("annotated image %s is empty", written[0])
	}
}

func TestOverlayAllMissingImage(t *testing.T) {

	records := []dataset.Record{
		{ImageID: "no-such-image.png", XMax: 5, YMax: 5, Label: "cell"},
	}

	_, err := OverlayAll(records, OverlayOptions{OutputDir: t.TempDir()})

	if err == nil {
		t.Errorf("got nil error for missing source image")
	}
}

func TestLoadTTFMissingFile(t *testing.T) {

	if _, err := LoadTTF("no-such-font.ttf", 14); err == nil {
		t.Errorf("got nil error for missing font file")
	}
}
