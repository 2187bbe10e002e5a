package dataset

import (
	"math"
	"sort"
)

// MergeDuplicates collapses predictions of the same image whose boxes are
// identical or within one pixel of each other on every edge, keeping only
// the highest scoring detection of each cluster.  Model outputs often
// contain such near duplicates when the same object is predicted at
// slightly shifted anchors or under competing class labels; the survivor
// keeps its own label, so the lower scoring class of a shared box is
// suppressed.  The survivors are returned sorted by probability in
// descending order.
func MergeDuplicates(dets []Detection) []Detection {

	merged := make([]Detection, 0, len(dets))

	for i, det := range dets {

		beaten := false

		for j, other := range dets {

			if i == j || det.ImageID != other.ImageID ||
				!withinOnePixel(det, other) {
				continue
			}

			// a tie on probability keeps the earlier row
			if other.Prob > det.Prob || (other.Prob == det.Prob && j < i) {
				beaten = true
				break
			}
		}

		if !beaten {
			merged = append(merged, det)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Prob > merged[j].Prob
	})

	return merged
}

// withinOnePixel reports whether two detections describe the same box, with
// every corner coordinate differing by at most one pixel
func withinOnePixel(a, b Detection) bool {

	return math.Abs(float64(a.XMin-b.XMin)) <= 1 &&
		math.Abs(float64(a.YMin-b.YMin)) <= 1 &&
		math.Abs(float64(a.XMax-b.XMax)) <= 1 &&
		math.Abs(float64(a.YMax-b.YMax)) <= 1
}
