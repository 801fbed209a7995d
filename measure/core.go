package measure

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/folio/layout"
)

// Core measures with the metric tables of the standard PDF core fonts. It
// needs no font files, which makes it the default backend.
type Core struct {
	mu        sync.Mutex
	pdf       *fpdf.Fpdf
	translate func(string) string
	fold      transform.Transformer
}

var _ layout.TextMeasurer = (*Core)(nil)

// NewCore prepares an in-memory document used only for metrics.
func NewCore() (*Core, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Times", "", 12)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("init core font metrics: %w", err)
	}
	return &Core{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		fold:      transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}, nil
}

// Measure returns the width in px. The page unit is pt, so passing the px size
// as the font size yields px directly.
func (c *Core) Measure(text, fontFamily string, fontSizePx float64) float64 {
	if text == "" || fontSizePx <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pdf.SetFont(coreFamily(fontFamily), "", fontSizePx)
	return c.pdf.GetStringWidth(c.translate(c.foldDiacritics(text)))
}

// foldDiacritics drops combining marks so Vietnamese text maps onto the
// single-byte core encoding.
func (c *Core) foldDiacritics(text string) string {
	folded, _, err := transform.String(c.fold, text)
	if err != nil {
		folded = text
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
}

func coreFamily(name string) string {
	first := strings.Split(name, ",")[0]
	first = strings.TrimSpace(strings.Trim(first, `'"`))
	switch strings.ToLower(first) {
	case "arial", "helvetica", "sans-serif", "roboto", "inter":
		return "Helvetica"
	case "courier", "courier new", "monospace", "consolas":
		return "Courier"
	default:
		return "Times"
	}
}
