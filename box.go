package lumi

import (
	"image"
	"math"
)

// Box is an axis aligned bounding box in pixel coordinates.  XMin,YMin is the
// top left corner and XMax,YMax the bottom right corner.
type Box struct {
	XMin float32
	YMin float32
	XMax float32
	YMax float32
}

// NewBox creates a Box from its corner coordinates
func NewBox(xmin, ymin, xmax, ymax float32) Box {
	return Box{
		XMin: xmin,
		YMin: ymin,
		XMax: xmax,
		YMax: ymax,
	}
}

// Width returns the pixel width of the box using inclusive pixel calculation
func (b Box) Width() float32 {
	return b.XMax - b.XMin + 1
}

// Height returns the pixel height of the box using inclusive pixel calculation
func (b Box) Height() float32 {
	return b.YMax - b.YMin + 1
}

// Area returns the pixel area covered by the box
func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

// Empty reports whether the box covers no pixels
func (b Box) Empty() bool {
	return b.XMax < b.XMin || b.YMax < b.YMin
}

// IoU works out the Intersection over Union (IoU) value of two boxes
func (b Box) IoU(other Box) float32 {

	w := math.Max(0.0, math.Min(float64(b.XMax), float64(other.XMax))-math.Max(float64(b.XMin), float64(other.XMin))+1.0)
	h := math.Max(0.0, math.Min(float64(b.YMax), float64(other.YMax))-math.Max(float64(b.YMin), float64(other.YMin))+1.0)
	intersection := w * h

	// calculate union with added 1.0 for inclusive pixel calculation
	union := b.Area() + other.Area() - float32(intersection)

	if union <= 0 {
		return 0.0
	}

	return float32(intersection) / union
}

// Rect converts the box to an image.Rectangle for use with drawing functions
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.XMin), int(b.YMin), int(b.XMax), int(b.YMax))
}
