package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/czbiohub/lumi/dataset"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// PutTTFText draws text onto the image using a TTF type face.  It is slower
// than the Hershey fonts but supports class names with glyphs outside the
// Latin range.
func PutTTFText(img *gocv.Mat, text string, pos image.Point, face font.Face,
	clr color.RGBA) error {

	// draw the text onto a transparent image of the same size
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}),
		image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(pos.X * 64),
			Y: fixed.Int26_6(pos.Y * 64),
		},
	}
	dr.DrawString(text)

	// Convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(),
		rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if imgRGBA.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA")
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)

	return nil
}

// overlayTTF draws boxes with their class labels rendered by the TTF face
func overlayTTF(img *gocv.Mat, records []dataset.Record, classIdx map[string]int,
	face font.Face, lineThickness int) error {

	for _, rec := range records {

		clr := ClassColor(classIdx[rec.Label])
		rect := rec.Box().Rect()

		gocv.Rectangle(img, rect, clr, lineThickness)

		pos := image.Pt(rect.Min.X, rect.Min.Y-4)

		if err := PutTTFText(img, rec.Label, pos, face, clr); err != nil {
			return err
		}
	}

	return nil
}
