package confusion

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/czbiohub/lumi"
	"github.com/czbiohub/lumi/dataset"
)

const (
	// DefaultIoUThreshold is the minimum IoU for a ground truth and a
	// detection to count as a match
	DefaultIoUThreshold = 0.5
	// DefaultConfidenceThreshold is the minimum probability a detection
	// needs to take part in the evaluation
	DefaultConfidenceThreshold = 0.9
)

// Evaluator computes a confusion matrix over ground truth and predicted
// annotations.  Rows of the two inputs are paired by image and each
// image's boxes are matched independently, so images can be evaluated in
// parallel.
type Evaluator struct {
	// Classes is the class list of the matrix.  When empty, the sorted
	// union of the labels present in the data is used.
	Classes []string
	// IoUThreshold is the minimum IoU for a match
	IoUThreshold float64
	// ConfidenceThreshold drops detections below this probability before
	// matching, so they count neither as matches nor as false positives
	ConfidenceThreshold float64
	// ImageFormat is the image extension stripped when pairing the rows
	// of the two files by image
	ImageFormat string
	// Workers caps the number of images evaluated in parallel.  Values
	// below one select one worker per CPU.
	Workers int
}

// NewEvaluator returns an Evaluator with the default thresholds and one
// worker per CPU
func NewEvaluator() *Evaluator {
	return &Evaluator{
		IoUThreshold:        DefaultIoUThreshold,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Workers:             runtime.NumCPU(),
	}
}

// Evaluate matches ground truth boxes against detections image by image
// and tallies the outcomes into a confusion matrix.  Each worker fills a
// local matrix and the results are merged once all images are done.
func (e *Evaluator) Evaluate(truths []dataset.Record,
	dets []dataset.Detection) (*Matrix, error) {

	if e.IoUThreshold <= 0 || e.IoUThreshold > 1 {
		return nil, fmt.Errorf("iou threshold %v out of range (0,1]",
			e.IoUThreshold)
	}

	if e.ConfidenceThreshold < 0 || e.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v out of range [0,1]",
			e.ConfidenceThreshold)
	}

	kept := make([]dataset.Detection, 0, len(dets))

	for _, det := range dets {
		if float64(det.Prob) >= e.ConfidenceThreshold {
			kept = append(kept, det)
		}
	}

	classes := e.Classes

	if len(classes) == 0 {
		classes = dataset.Labels(truths, kept)
	}

	truthGroups := dataset.GroupRecords(truths, e.ImageFormat)
	detGroups := dataset.GroupDetections(kept, e.ImageFormat)

	keys := make([]string, 0, len(truthGroups)+len(detGroups))

	for key := range truthGroups {
		keys = append(keys, key)
	}

	for key := range detGroups {
		if _, ok := truthGroups[key]; !ok {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	workers := e.Workers

	if workers < 1 {
		workers = runtime.NumCPU()
	}

	if workers > len(keys) {
		workers = len(keys)
	}

	total := NewMatrix(classes)

	if len(keys) == 0 {
		return total, nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	locals := make([]*Matrix, workers)
	jobs := make(chan string)

	for w := 0; w < workers; w++ {

		wg.Add(1)
		locals[w] = NewMatrix(classes)

		go func(local *Matrix) {

			defer wg.Done()

			for key := range jobs {

				err := evaluateImage(local, truthGroups[key],
					detGroups[key], e.IoUThreshold)

				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("image %s: %w", key, err)
					})
				}
			}
		}(locals[w])
	}

	for _, key := range keys {
		jobs <- key
	}

	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	for _, local := range locals {
		if err := total.Merge(local); err != nil {
			return nil, err
		}
	}

	return total, nil
}

// evaluateImage matches the boxes of one image and tallies the outcome
func evaluateImage(m *Matrix, truths []dataset.Record,
	dets []dataset.Detection, minIoU float64) error {

	truthBoxes := make([]lumi.Box, len(truths))

	for i, rec := range truths {
		truthBoxes[i] = rec.Box()
	}

	detBoxes := make([]lumi.Box, len(dets))

	for j, det := range dets {
		detBoxes[j] = det.Box()
	}

	as, err := Match(truthBoxes, detBoxes, minIoU)

	if err != nil {
		return err
	}

	for _, pair := range as.Pairs {
		if err := m.AddMatch(truths[pair[0]].Label, dets[pair[1]].Label); err != nil {
			return err
		}
	}

	for _, i := range as.UnmatchedTruths {
		if err := m.AddMissed(truths[i].Label); err != nil {
			return err
		}
	}

	for _, j := range as.UnmatchedDetections {
		if err := m.AddSpurious(dets[j].Label); err != nil {
			return err
		}
	}

	return nil
}
