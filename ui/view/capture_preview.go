package view

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/soocke/stream-console/ui/images"
	"github.com/soocke/stream-console/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the latest frame scaled into a fixed box, or a
// placeholder message while the stream has no signal.
type CapturePreview interface {
	ShowFrame(img image.Image)
	ShowPlaceholder(text string)
}

const (
	maxPreviewW = 640
	maxPreviewH = 360
)

type capturePreview struct {
	label *LabelWidget
	photo *Img // current Tk photo; deleted before replacement
}

// NewCapturePreview creates the preview label spanning columns 0-3 of row.
func NewCapturePreview(row int) CapturePreview {
	v := &capturePreview{}
	v.label = Label(Borderwidth(1), Relief("sunken"), Compound("center"), Foreground("white"))
	Grid(v.label, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	v.ShowPlaceholder("")
	return v
}

func (v *capturePreview) ShowFrame(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	png, err := images.EncodePNG(images.ScaleToFit(img, maxPreviewW, maxPreviewH))
	if err != nil {
		return
	}
	v.replace(png, "")
}

func (v *capturePreview) ShowPlaceholder(text string) {
	if v.label == nil {
		return
	}
	bg := image.NewRGBA(image.Rect(0, 0, maxPreviewW, maxPreviewH))
	draw.Draw(bg, bg.Bounds(), image.NewUniform(signalColor), image.Point{}, draw.Src)
	png, err := images.EncodePNG(bg)
	if err != nil {
		return
	}
	v.replace(png, text)
}

func (v *capturePreview) replace(png []byte, text string) {
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = NewPhoto(Data(png))
	v.label.Configure(Image(v.photo), Txt(text))
}

var signalColor = func() color.RGBA {
	var r, g, b uint8
	_, _ = fmt.Sscanf(theme.ColorSignal, "#%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 0xFF}
}()
