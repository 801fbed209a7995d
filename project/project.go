// Package project holds the document payload exchanged with the editor: the
// source text, layout settings, the figure and table registries and the
// bibliography.
package project

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/folio/layout"
)

// Project is the load/save payload.
type Project struct {
	Content   string          `json:"content"`
	Settings  layout.Settings `json:"settings"`
	Figures   []layout.Figure `json:"figures"`
	Tables    []Table         `json:"tables,omitempty"`
	Citations []Citation      `json:"citations"`

	Abbreviations []Abbreviation `json:"abbreviations,omitempty"`
}

// Table is a registry entry for a table caption.
type Table struct {
	ID      int    `json:"id"`
	Caption string `json:"caption"`
	Chapter int    `json:"chapter"`
	Number  string `json:"number"`
}

// Citation is one bibliography entry.
type Citation struct {
	ID        int    `json:"id"`
	Author    string `json:"author"`
	Year      string `json:"year"`
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
	URL       string `json:"url,omitempty"`
	Type      string `json:"citation_type,omitempty"`
}

// FormatAPA renders the entry as "Author (Year). Title. Publisher. Retrieved from URL."
func (c Citation) FormatAPA() string {
	year := strings.TrimSpace(c.Year)
	if year == "" {
		year = "n.d."
	}
	parts := make([]string, 0, 4)
	if author := strings.TrimSpace(c.Author); author != "" {
		parts = append(parts, author+" ("+year+")")
	} else {
		parts = append(parts, "("+year+")")
	}
	if title := strings.TrimSpace(c.Title); title != "" {
		parts = append(parts, title)
	}
	if publisher := strings.TrimSpace(c.Publisher); publisher != "" {
		parts = append(parts, publisher)
	}
	if url := strings.TrimSpace(c.URL); url != "" {
		parts = append(parts, "Retrieved from "+url)
	}
	return strings.Join(parts, ". ") + "."
}

// New returns an empty project with default settings.
func New() *Project {
	return &Project{Settings: layout.DefaultSettings()}
}

// Decode reads a project. Settings keys missing from the payload keep their
// defaults.
func Decode(r io.Reader) (*Project, error) {
	p := New()
	if err := json.NewDecoder(r).Decode(p); err != nil {
		return nil, fmt.Errorf("unable to decode project: %w", err)
	}
	return p, nil
}

// Encode writes the project as indented JSON without escaping non-ASCII text.
func (p *Project) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("unable to encode project: %w", err)
	}
	return nil
}

// Paginate runs the layout engine over the project content.
func (p *Project) Paginate(m layout.TextMeasurer, log *zap.Logger) (*layout.Result, error) {
	return layout.Build(p.Content, p.Figures, layout.BuildOptions{
		Settings: p.Settings,
		Measurer: m,
		Logger:   log,
	})
}

// Bibliography returns the formatted citations in registry order.
func (p *Project) Bibliography() []string {
	out := make([]string, 0, len(p.Citations))
	for _, c := range p.Citations {
		out = append(out, c.FormatAPA())
	}
	return out
}

// AddCitation appends c with the next free id. A title is required.
func (p *Project) AddCitation(c Citation) (Citation, error) {
	if strings.TrimSpace(c.Title) == "" {
		return Citation{}, fmt.Errorf("citation title is required")
	}
	c.ID = 1
	for _, existing := range p.Citations {
		c.ID = max(c.ID, existing.ID+1)
	}
	if c.Type == "" {
		c.Type = "book"
	}
	p.Citations = append(p.Citations, c)
	return c, nil
}
