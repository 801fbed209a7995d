package project

import (
	"fmt"
	"io"
	"strings"

	"github.com/ByLCY/folio/layout"
)

// fullWidthCm is the figure width at 100% scale.
const fullWidthCm = 16.0

// Chapter returns the number of level-1 headings in the content, at least 1.
func (p *Project) Chapter() int {
	n := 0
	for _, b := range layout.Classify(p.Content, p.Settings) {
		if b.Kind == layout.KindHeading && b.Level == 1 {
			n++
		}
	}
	return max(n, 1)
}

// InsertFigure stores an uploaded image, registers it as the next figure of
// the last chapter and appends its reference line to the content. scale is a
// percentage of the full text width; zero means 100.
func (p *Project) InsertFigure(store AssetStore, name string, r io.Reader, caption string, scale float64) (layout.Figure, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return layout.Figure{}, fmt.Errorf("figure caption is required")
	}
	if scale <= 0 {
		scale = 100
	}
	asset, err := store.Put(name, r)
	if err != nil {
		return layout.Figure{}, err
	}

	chapter := p.Chapter()
	index, id := 1, 1
	for _, f := range p.Figures {
		if f.Chapter == chapter {
			index++
		}
		id = max(id, f.ID+1)
	}
	fig := layout.Figure{
		ID:      id,
		Number:  fmt.Sprintf("%s %d.%d", label(p.Settings.FigureLabel, "Hình"), chapter, index),
		Caption: caption,
		Path:    asset.Path,
		URL:     asset.URL,
		Chapter: chapter,
		Width:   scale / 100 * fullWidthCm,
	}
	p.Figures = append(p.Figures, fig)
	p.appendLine(figureLine(fig.Number, caption))
	return fig, nil
}

func (p *Project) appendLine(line string) {
	if p.Content != "" && !strings.HasSuffix(p.Content, "\n") {
		p.Content += "\n"
	}
	p.Content += line + "\n"
}

func figureLine(number, caption string) string {
	return "[" + number + ": " + caption + "]"
}

func label(configured, fallback string) string {
	if l := strings.TrimSpace(configured); l != "" {
		return l
	}
	return fallback
}
