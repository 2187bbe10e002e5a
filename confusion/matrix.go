// Package confusion builds confusion matrices for object detection output.
// Ground truth boxes and detections are matched one to one per image by
// solving a linear assignment problem over IoU costs, then the label pairs
// of the matches are tallied together with the boxes left unmatched on
// either side.
package confusion

import (
	"fmt"

	"github.com/czbiohub/lumi"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Unmatched names the trailing matrix bucket counting boxes without a
// partner on the other side
const Unmatched = "Unmatched"

// Matrix is a confusion matrix over a class list plus one trailing
// Unmatched bucket.  Rows index the ground truth class and columns the
// predicted class, so cell (i, j) counts ground truth boxes of class i
// matched to a detection of class j.  The last row counts detections with
// no matching ground truth and the last column ground truths with no
// matching detection.
type Matrix struct {
	classes []string
	index   map[string]int
	cells   *mat.Dense
}

// NewMatrix returns an empty confusion matrix over the given classes
func NewMatrix(classes []string) *Matrix {

	n := len(classes) + 1

	return &Matrix{
		classes: append([]string(nil), classes...),
		index:   lumi.ClassIndex(classes),
		cells:   mat.NewDense(n, n, nil),
	}
}

// Classes returns the class list the matrix was built over
func (m *Matrix) Classes() []string {
	return append([]string(nil), m.classes...)
}

// NumClasses returns the number of classes, not counting the Unmatched
// bucket
func (m *Matrix) NumClasses() int {
	return len(m.classes)
}

// At returns the count in cell (i, j).  Index NumClasses addresses the
// Unmatched bucket.
func (m *Matrix) At(i, j int) float64 {
	return m.cells.At(i, j)
}

// classOf resolves a label to its matrix index
func (m *Matrix) classOf(label string) (int, error) {

	i, ok := m.index[label]

	if !ok {
		return 0, fmt.Errorf("label %q is not in the class list", label)
	}

	return i, nil
}

// AddMatch counts one matched pair of a ground truth box labelled truth
// and a detection labelled det
func (m *Matrix) AddMatch(truth, det string) error {

	i, err := m.classOf(truth)

	if err != nil {
		return err
	}

	j, err := m.classOf(det)

	if err != nil {
		return err
	}

	m.cells.Set(i, j, m.cells.At(i, j)+1)

	return nil
}

// AddMissed counts one ground truth box no detection was matched to
func (m *Matrix) AddMissed(truth string) error {

	i, err := m.classOf(truth)

	if err != nil {
		return err
	}

	j := len(m.classes)
	m.cells.Set(i, j, m.cells.At(i, j)+1)

	return nil
}

// AddSpurious counts one detection no ground truth box was matched to
func (m *Matrix) AddSpurious(det string) error {

	j, err := m.classOf(det)

	if err != nil {
		return err
	}

	i := len(m.classes)
	m.cells.Set(i, j, m.cells.At(i, j)+1)

	return nil
}

// Merge adds the counts of another matrix built over the same class list
func (m *Matrix) Merge(other *Matrix) error {

	if len(other.classes) != len(m.classes) {
		return fmt.Errorf("merging matrices over %d and %d classes",
			len(other.classes), len(m.classes))
	}

	for i, class := range m.classes {
		if other.classes[i] != class {
			return fmt.Errorf("merging matrices over different class lists")
		}
	}

	m.cells.Add(m.cells, other.cells)

	return nil
}

// TruthTotal returns the number of ground truth boxes of class i,
// including those that went unmatched
func (m *Matrix) TruthTotal(i int) float64 {
	return floats.Sum(m.cells.RawRowView(i))
}

// DetectionTotal returns the number of detections of class j, including
// those that went unmatched
func (m *Matrix) DetectionTotal(j int) float64 {
	return floats.Sum(mat.Col(nil, j, m.cells))
}

// Normalized returns the matrix with every row scaled to percentages of
// its row total.  Rows without any count stay zero.
func (m *Matrix) Normalized() *mat.Dense {

	n := len(m.classes) + 1
	norm := mat.NewDense(n, n, nil)

	for i := 0; i < n; i++ {

		total := floats.Sum(m.cells.RawRowView(i))

		if total == 0 {
			continue
		}

		for j := 0; j < n; j++ {
			norm.Set(i, j, m.cells.At(i, j)/total*100)
		}
	}

	return norm
}

// Precision returns the fraction of class i detections that matched a
// ground truth box of class i.  It is NaN when the class was never
// predicted.
func (m *Matrix) Precision(i int) float64 {
	return m.cells.At(i, i) / m.DetectionTotal(i)
}

// Recall returns the fraction of class i ground truth boxes matched by a
// detection of class i.  It is NaN when the class has no ground truth.
func (m *Matrix) Recall(i int) float64 {
	return m.cells.At(i, i) / m.TruthTotal(i)
}

// CollapseBinary folds the matrix into one over the two meta classes of a
// binary grouping, adding each cell into the cell of its groups.  The
// Unmatched bucket stays its own row and column.
func (m *Matrix) CollapseBinary(bc *lumi.BinaryClasses) (*Matrix, error) {

	folded := NewMatrix(bc.Labels[:])

	unmatched := len(m.classes)

	groupOf := func(i int) (int, error) {

		if i == unmatched {
			return 2, nil
		}

		g := bc.GroupOf(m.classes[i])

		if g < 0 {
			return 0, fmt.Errorf("class %q is not in either binary group",
				m.classes[i])
		}

		return g, nil
	}

	for i := 0; i <= unmatched; i++ {

		gi, err := groupOf(i)

		if err != nil {
			return nil, err
		}

		for j := 0; j <= unmatched; j++ {

			gj, err := groupOf(j)

			if err != nil {
				return nil, err
			}

			folded.cells.Set(gi, gj, folded.cells.At(gi, gj)+m.cells.At(i, j))
		}
	}

	return folded, nil
}
