package measure

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/folio/layout"
)

// Shaper measures by shaping text with HarfBuzz and summing glyph advances,
// so kerning and ligatures are accounted for.
type Shaper struct {
	mu     sync.Mutex
	face   *font.Face
	shaper shaping.HarfbuzzShaper
	lang   language.Language
}

var _ layout.TextMeasurer = (*Shaper)(nil)

// NewShaper parses a TrueType/OpenType font.
func NewShaper(fontData []byte) (*Shaper, error) {
	face, err := font.ParseTTF(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("parse measurement font: %w", err)
	}
	return &Shaper{face: face, lang: language.NewLanguage("vi")}, nil
}

// Measure ignores fontFamily like Canvas does.
func (s *Shaper) Measure(text, fontFamily string, fontSizePx float64) float64 {
	if text == "" || fontSizePx <= 0 {
		return 0
	}
	runes := []rune(text)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      s.face,
		Size:      fixed.Int26_6(fontSizePx * 64),
		Script:    language.Latin,
		Language:  s.lang,
	}

	s.mu.Lock()
	out := s.shaper.Shape(input)
	s.mu.Unlock()

	var total fixed.Int26_6
	for _, g := range out.Glyphs {
		total += g.XAdvance
	}
	return float64(total) / 64
}
