package confusion

import (
	"errors"

	"github.com/czbiohub/lumi"
)

// costly seeds minima searches above any reachable assignment cost
const costly = 1e6

// Assignment is the result of one to one matching between ground truth
// boxes and detection boxes of a single image.
type Assignment struct {
	// Pairs holds matched (truth index, detection index) pairs
	Pairs [][2]int
	// UnmatchedTruths indexes ground truth boxes without a detection,
	// counted as false negatives
	UnmatchedTruths []int
	// UnmatchedDetections indexes detections without a ground truth,
	// counted as false positives
	UnmatchedDetections []int
}

// Match assigns detections to ground truth boxes one to one, minimizing the
// total cost of 1-IoU over all pairs.  Pairs overlapping less than minIoU
// are left unmatched.  Matching is class agnostic, label disagreement
// within matched pairs is what the confusion matrix measures.
func Match(truths, dets []lumi.Box, minIoU float64) (Assignment, error) {

	var as Assignment

	if len(truths) == 0 || len(dets) == 0 {

		for i := range truths {
			as.UnmatchedTruths = append(as.UnmatchedTruths, i)
		}

		for j := range dets {
			as.UnmatchedDetections = append(as.UnmatchedDetections, j)
		}

		return as, nil
	}

	// The cost matrix is padded to square with dummy assignments priced at
	// half the cost limit, so leaving a pair unmatched through two dummies
	// is cheaper than any pair costing more than the limit.
	nRows := len(truths)
	nCols := len(dets)
	n := nRows + nCols
	limit := 1 - minIoU

	cost := make([][]float64, n)

	for i := range cost {

		cost[i] = make([]float64, n)

		for j := range cost[i] {
			cost[i][j] = limit / 2
		}
	}

	for i := nRows; i < n; i++ {
		for j := nCols; j < n; j++ {
			cost[i][j] = 0
		}
	}

	for i, truth := range truths {
		for j := range dets {
			cost[i][j] = 1 - float64(truth.IoU(dets[j]))
		}
	}

	rowTo := make([]int, n)
	colTo := make([]int, n)

	if err := solveDense(n, cost, rowTo, colTo); err != nil {
		return as, err
	}

	matched := make([]bool, nCols)

	for i := 0; i < nRows; i++ {

		j := rowTo[i]

		if j >= 0 && j < nCols && float64(truths[i].IoU(dets[j])) >= minIoU {
			as.Pairs = append(as.Pairs, [2]int{i, j})
			matched[j] = true
		} else {
			as.UnmatchedTruths = append(as.UnmatchedTruths, i)
		}
	}

	for j := 0; j < nCols; j++ {
		if !matched[j] {
			as.UnmatchedDetections = append(as.UnmatchedDetections, j)
		}
	}

	return as, nil
}

// solveDense solves a square dense linear assignment problem with the
// Jonker-Volgenant algorithm.  rowTo[i] receives the column assigned to
// row i and colTo[j] the row assigned to column j.
func solveDense(n int, cost [][]float64, rowTo, colTo []int) error {

	free := make([]int, n)
	v := make([]float64, n)

	nFree := reduceColumns(n, cost, free, rowTo, colTo, v)

	for pass := 0; nFree > 0 && pass < 2; pass++ {
		nFree = reduceAugmenting(n, cost, nFree, free, rowTo, colTo, v)
	}

	if nFree > 0 {
		return augment(n, cost, nFree, free, rowTo, colTo, v)
	}

	return nil
}

// reduceColumns performs column reduction and reduction transfer, seeding
// the column prices v with per column minima.  It returns the number of
// rows left unassigned, collected in free.
func reduceColumns(n int, cost [][]float64, free, rowTo, colTo []int,
	v []float64) int {

	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		rowTo[i] = -1
		colTo[i] = 0
		v[i] = costly
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < v[j] {
				v[j] = c
				colTo[j] = i
			}
		}
	}

	for j := n - 1; j >= 0; j-- {

		i := colTo[j]

		if rowTo[i] < 0 {
			rowTo[i] = j
		} else {
			unique[i] = false
			colTo[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if rowTo[i] < 0 {
			free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		// transfer slack to the column price of the row's single column
		j := rowTo[i]
		min := costly

		for j2 := 0; j2 < n; j2++ {

			if j2 == j {
				continue
			}

			if c := cost[i][j2] - v[j2]; c < min {
				min = c
			}
		}

		v[j] -= min
	}

	return nFree
}

// reduceAugmenting performs one round of augmenting row reduction over the
// free rows, reassigning columns where the price gap allows.  It returns
// the number of rows still unassigned afterwards.
func reduceAugmenting(n int, cost [][]float64, nFree int, free,
	rowTo, colTo []int, v []float64) int {

	current := 0
	next := 0
	rounds := 0

	for current < nFree {

		rounds++
		row := free[current]
		current++

		// find the smallest and second smallest reduced cost in this row
		j1 := 0
		low := cost[row][0] - v[0]
		j2 := -1
		second := costly

		for j := 1; j < n; j++ {

			c := cost[row][j] - v[j]

			if c >= second {
				continue
			}

			if c >= low {
				second = c
				j2 = j
			} else {
				second = low
				low = c
				j2 = j1
				j1 = j
			}
		}

		owner := colTo[j1]
		priced := v[j1] - (second - low)
		lowers := priced < v[j1]

		if rounds < current*n {

			if lowers {
				v[j1] = priced
			} else if owner >= 0 && j2 >= 0 {
				j1 = j2
				owner = colTo[j2]
			}

			if owner >= 0 {
				if lowers {
					current--
					free[current] = owner
				} else {
					free[next] = owner
					next++
				}
			}

		} else if owner >= 0 {
			free[next] = owner
			next++
		}

		rowTo[row] = j1
		colTo[j1] = row
	}

	return next
}

// nearestColumns partitions cols so the columns sharing the minimum path
// cost d sit in the scan window starting at lo, returning the window end
func nearestColumns(n, lo int, d []float64, cols []int) int {

	hi := lo + 1
	min := d[cols[lo]]

	for k := hi; k < n; k++ {

		j := cols[k]

		if d[j] > min {
			continue
		}

		if d[j] < min {
			hi = lo
			min = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scanColumns relaxes the path cost of the remaining columns through each
// column in the scan window, returning an unassigned column as soon as one
// becomes reachable at the window's minimum cost
func scanColumns(n int, cost [][]float64, lo, hi *int, d []float64,
	cols, pred, colTo []int, v []float64) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++

		i := colTo[j]
		min := d[j]
		h := cost[i][j] - v[j] - min

		for k := *hi; k < n; k++ {

			j = cols[k]
			reduced := cost[i][j] - v[j] - h

			if reduced >= d[j] {
				continue
			}

			d[j] = reduced
			pred[j] = i

			if reduced == min {

				if colTo[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				(*hi)++
			}
		}
	}

	return -1
}

// shortestPath runs one round of the modified Dijkstra search of the
// Jonker-Volgenant paper, returning the unassigned column that ends the
// augmenting path and settling the column prices along the way
func shortestPath(n int, cost [][]float64, start int, colTo []int,
	v []float64, pred []int) int {

	lo := 0
	hi := 0
	endJ := -1
	nReady := 0

	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = start
		d[i] = cost[start][i] - v[i]
	}

	for endJ == -1 {

		if lo == hi {

			nReady = lo
			hi = nearestColumns(n, lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; colTo[j] < 0 {
					endJ = j
				}
			}
		}

		if endJ == -1 {
			endJ = scanColumns(n, cost, &lo, &hi, d, cols, pred, colTo, v)
		}
	}

	min := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		v[j] += d[j] - min
	}

	return endJ
}

// augment builds an augmenting path for every remaining free row and flips
// the assignments along it
func augment(n int, cost [][]float64, nFree int, free, rowTo, colTo []int,
	v []float64) error {

	pred := make([]int, n)

	for _, row := range free[:nFree] {

		j := shortestPath(n, cost, row, colTo, v, pred)

		if j < 0 || j >= n {
			return errors.New("assignment search left the cost matrix")
		}

		i := -1

		for steps := 0; i != row; steps++ {

			if steps >= n {
				return errors.New("assignment path does not terminate")
			}

			i = pred[j]
			colTo[j] = i
			j, rowTo[i] = rowTo[i], j
		}
	}

	return nil
}
