package project

import (
	"fmt"
	"strings"

	"github.com/ByLCY/folio/layout"
)

// RenumberReport summarizes a Renumber pass.
type RenumberReport struct {
	Figures int `json:"figures"`
	Tables  int `json:"tables"`
	// Unmatched lists references that have no registry entry.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Renumber rewrites figure reference lines and table captions so they are
// numbered "<chapter>.<k>" in document order, and updates the registries in
// lock-step. A registry entry is matched by caption first, then by its old
// number. Entries never referenced keep their numbers.
func (p *Project) Renumber() RenumberReport {
	var rpt RenumberReport
	lines := strings.Split(p.Content, "\n")
	figLabel := label(p.Settings.FigureLabel, "Hình")
	tblLabel := label(p.Settings.TableLabel, "Bảng")
	usedFigs := make([]bool, len(p.Figures))
	usedTbls := make([]bool, len(p.Tables))
	chapter, h1, figIndex, tblIndex := 1, 0, 0, 0

	for _, b := range layout.Classify(p.Content, p.Settings) {
		switch b.Kind {
		case layout.KindHeading:
			if b.Level != 1 {
				continue
			}
			h1++
			if max(h1, 1) != chapter {
				chapter = max(h1, 1)
				figIndex, tblIndex = 0, 0
			}
		case layout.KindFigure:
			figIndex++
			number := fmt.Sprintf("%s %d.%d", figLabel, chapter, figIndex)
			lines[b.Line] = figureLine(number, b.Caption)
			rpt.Figures++
			i := matchFigure(p.Figures, usedFigs, b.Caption, b.FigureRef)
			if i < 0 {
				rpt.Unmatched = append(rpt.Unmatched, b.FigureRef)
				continue
			}
			usedFigs[i] = true
			p.Figures[i].Number = number
			p.Figures[i].Chapter = chapter
		case layout.KindTableCaption:
			oldNumber, caption := splitTableCaption(b.Text, tblLabel)
			tblIndex++
			number := fmt.Sprintf("%s %d.%d", tblLabel, chapter, tblIndex)
			lines[b.Line] = number + ": " + caption
			rpt.Tables++
			i := matchTable(p.Tables, usedTbls, caption, oldNumber)
			if i < 0 {
				rpt.Unmatched = append(rpt.Unmatched, oldNumber)
				continue
			}
			usedTbls[i] = true
			p.Tables[i].Number = number
			p.Tables[i].Chapter = chapter
		}
	}
	p.Content = strings.Join(lines, "\n")
	return rpt
}

// splitTableCaption splits "Bảng 1.2: Caption" into its number and caption.
func splitTableCaption(text, tblLabel string) (string, string) {
	number, caption, _ := strings.Cut(text, ":")
	number = strings.TrimSpace(number)
	if number == "" {
		number = tblLabel
	}
	return number, strings.TrimSpace(caption)
}

func matchFigure(figs []layout.Figure, used []bool, caption, ref string) int {
	caption = strings.TrimSpace(caption)
	for i, f := range figs {
		if !used[i] && caption != "" && strings.TrimSpace(f.Caption) == caption {
			return i
		}
	}
	for i, f := range figs {
		if !used[i] && sameNumber(f.Number, ref) {
			return i
		}
	}
	return -1
}

func matchTable(tables []Table, used []bool, caption, number string) int {
	for i, t := range tables {
		if !used[i] && caption != "" && strings.TrimSpace(t.Caption) == caption {
			return i
		}
	}
	for i, t := range tables {
		if !used[i] && sameNumber(t.Number, number) {
			return i
		}
	}
	return -1
}

// sameNumber compares registry numbers the way figure references resolve:
// whitespace does not matter.
func sameNumber(a, b string) bool {
	_, ok := layout.ResolveFigure([]layout.Figure{{Number: a}}, b)
	return ok
}
