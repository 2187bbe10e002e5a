// Package render draws bounding box annotations onto images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/czbiohub/lumi/dataset"
	"gocv.io/x/gocv"
)

// boxLabel defines where a box's label banner should be rendered on the
// source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Boxes renders ground truth bounding boxes with their class labels.
// Colors follow the class index so a class keeps its color across images.
func Boxes(img *gocv.Mat, records []dataset.Record, classIdx map[string]int,
	font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(records))

	for _, rec := range records {

		clr := ClassColor(classIdx[rec.Label])

		next := annotate(img, rec.Box().Rect(), rec.Label, clr, font,
			lineThickness)

		boxLabels = append(boxLabels, next)
	}

	drawLabels(img, boxLabels, font)
}

// Detections renders predicted bounding boxes, labelling each with its
// class and probability
func Detections(img *gocv.Mat, dets []dataset.Detection, classIdx map[string]int,
	font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {

		clr := ClassColor(classIdx[det.Label])
		text := fmt.Sprintf("%s %.2f", det.Label, det.Prob)

		next := annotate(img, det.Box().Rect(), text, clr, font,
			lineThickness)

		boxLabels = append(boxLabels, next)
	}

	drawLabels(img, boxLabels, font)
}

// annotate draws the rectangle around one box and works out where its
// label banner belongs
func annotate(img *gocv.Mat, rect image.Rectangle, text string,
	clr color.RGBA, font Font, lineThickness int) boxLabel {

	gocv.Rectangle(img, rect, clr, lineThickness)

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (rect.Min.X + rect.Max.X) / 2

	case Right:
		centerX = rect.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = rect.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	// Adjust the label position so the text is centered horizontally
	labelPosition := image.Pt(centerX-textSize.X/2, rect.Min.Y-font.BottomPad)

	// create box for placing text on
	bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
		rect.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
		centerX+textSize.X/2+font.RightPad, rect.Min.Y)

	return boxLabel{
		rect:    bRect,
		clr:     clr,
		text:    text,
		textPos: labelPosition,
	}
}

// drawLabels draws all precalculated box labels so they are the top most
// layer on the image and don't get overlapped by neighbouring boxes
func drawLabels(img *gocv.Mat, boxLabels []boxLabel, font Font) {

	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
