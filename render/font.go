package render

import (
	"fmt"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// LoadTTF loads a TTF font file and creates a type face of the given point
// size for drawing class labels that need glyphs beyond the built in
// Hershey fonts
func LoadTTF(fontPath string, size float64) (font.Face, error) {

	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return face, nil
}
