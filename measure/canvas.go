package measure

import (
	"fmt"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/folio/layout"
)

// Canvas measures with a TrueType face loaded into tdewolff/canvas.
type Canvas struct {
	mu     sync.Mutex
	family *canvas.FontFamily
	faces  map[float64]*canvas.FontFace
}

var _ layout.TextMeasurer = (*Canvas)(nil)

// NewCanvas loads the font bytes as the regular style of a private family.
func NewCanvas(fontData []byte) (*Canvas, error) {
	family := canvas.NewFontFamily("folio-measure")
	if err := family.LoadFont(fontData, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("load measurement font: %w", err)
	}
	return &Canvas{family: family, faces: map[float64]*canvas.FontFace{}}, nil
}

// Measure ignores fontFamily: the loaded face stands in for every family.
func (c *Canvas) Measure(text, fontFamily string, fontSizePx float64) float64 {
	if text == "" || fontSizePx <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	face, ok := c.faces[fontSizePx]
	if !ok {
		face = c.family.Face(fontSizePx/layout.PtToPx, canvas.Black, canvas.FontRegular, canvas.FontNormal)
		c.faces[fontSizePx] = face
	}
	// TextWidth 返回 mm
	return face.TextWidth(text) / 10 * layout.CmToPx
}
