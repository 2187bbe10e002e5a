package dataset

import (
	"testing"
)

// det is a shorthand constructor for detection fixtures
func det(xmin, ymin, xmax, ymax, prob float32, label string) Detection {
	return Detection{
		Record: Record{ImageID: "img.png", XMin: xmin, YMin: ymin,
			XMax: xmax, YMax: ymax, Label: label},
		Prob: prob,
	}
}

func TestMergeDuplicatesIdentical(t *testing.T) {

	dets := []Detection{
		det(10, 10, 50, 50, 0.6, "cell"),
		det(10, 10, 50, 50, 0.9, "cell"),
	}

	merged := MergeDuplicates(dets)

	if len(merged) != 1 {
		t.Fatalf("got %d detections; want 1", len(merged))
	}

	if merged[0].Prob != 0.9 {
		t.Errorf("got prob %v; want 0.9", merged[0].Prob)
	}
}

func TestMergeDuplicatesOnePixelApart(t *testing.T) {

	dets := []Detection{
		det(10, 10, 50, 50, 0.8, "cell"),
		det(11, 10, 51, 50, 0.7, "cell"),
		det(10, 11, 50, 51, 0.5, "cell"),
	}

	merged := MergeDuplicates(dets)

	if len(merged) != 1 {
		t.Fatalf("got %d detections; want 1", len(merged))
	}

	if merged[0].Prob != 0.8 {
		t.Errorf("got prob %v; want 0.8", merged[0].Prob)
	}
}

func TestMergeDuplicatesDistinctBoxes(t *testing.T) {

	dets := []Detection{
		det(10, 10, 50, 50, 0.5, "cell"),
		det(100, 100, 150, 150, 0.9, "cell"),
		det(12, 10, 50, 50, 0.4, "cell"),
	}

	merged := MergeDuplicates(dets)

	// the third box is two pixels away from the first, so both survive
	if len(merged) != 3 {
		t.Fatalf("got %d detections; want 3", len(merged))
	}

	// survivors come back sorted by probability
	for i := 1; i < len(merged); i++ {
		if merged[i].Prob > merged[i-1].Prob {
			t.Errorf("detections not sorted by prob: %v before %v",
				merged[i-1].Prob, merged[i].Prob)
		}
	}
}

func TestMergeDuplicatesAcrossLabels(t *testing.T) {

	// the same box predicted under two competing classes keeps only the
	// higher scoring class
	dets := []Detection{
		det(10, 10, 50, 50, 0.9, "cell"),
		det(10, 10, 50, 50, 0.8, "ring"),
	}

	merged := MergeDuplicates(dets)

	if len(merged) != 1 {
		t.Fatalf("got %d detections; want 1", len(merged))
	}

	if merged[0].Label != "cell" || merged[0].Prob != 0.9 {
		t.Errorf("got %q with prob %v; want the cell row with 0.9",
			merged[0].Label, merged[0].Prob)
	}
}

func TestMergeDuplicatesPerImage(t *testing.T) {

	// identical boxes on different images are different objects
	a := det(10, 10, 50, 50, 0.9, "cell")
	a.ImageID = "img_1.png"

	b := det(10, 10, 50, 50, 0.8, "cell")
	b.ImageID = "img_2.png"

	merged := MergeDuplicates([]Detection{a, b})

	if len(merged) != 2 {
		t.Fatalf("got %d detections; want 2", len(merged))
	}
}

func TestMergeDuplicatesTieKeepsEarlier(t *testing.T) {

	a := det(10, 10, 50, 50, 0.7, "cell")
	b := det(11, 11, 51, 51, 0.7, "cell")

	merged := MergeDuplicates([]Detection{a, b})

	if len(merged) != 1 {
		t.Fatalf("got %d detections; want 1", len(merged))
	}

	if merged[0] != a {
		t.Errorf("got %+v; want first detection kept on tie", merged[0])
	}
}
