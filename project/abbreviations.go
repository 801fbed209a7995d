package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Abbreviation types.
const (
	TypeAbbreviation = "abbreviation"
	TypeSymbol       = "symbol"
)

var (
	ErrAbbreviationRequired = errors.New("abbreviation and full form are required")
	ErrAbbreviationNotFound = errors.New("abbreviation not found")
	ErrNoAbbreviations      = errors.New("no valid abbreviations in payload")
)

// Abbreviation is an entry of the abbreviation and symbol list.
type Abbreviation struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FullForm     string `json:"fullForm"`
	Type         string `json:"type"`
}

// 导入时兼容的字段别名
type abbreviationInput struct {
	Abbreviation string `json:"abbreviation"`
	Abbr         string `json:"abbr"`
	VietTat      string `json:"viettatt"`
	FullForm     string `json:"fullForm"`
	Full         string `json:"full"`
	DienGiai     string `json:"diengiai"`
	Meaning      string `json:"meaning"`
	Type         string `json:"type"`
}

func (in abbreviationInput) entry() Abbreviation {
	return Abbreviation{
		Abbreviation: firstNonEmpty(in.Abbreviation, in.Abbr, in.VietTat),
		FullForm:     firstNonEmpty(in.FullForm, in.Full, in.DienGiai, in.Meaning),
		Type:         in.Type,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// normalize trims the fields and defaults the type. Anything but "symbol"
// is an abbreviation.
func (a Abbreviation) normalize() (Abbreviation, error) {
	a.Abbreviation = strings.TrimSpace(a.Abbreviation)
	a.FullForm = strings.TrimSpace(a.FullForm)
	if a.Abbreviation == "" || a.FullForm == "" {
		return Abbreviation{}, ErrAbbreviationRequired
	}
	if a.Type != TypeSymbol {
		a.Type = TypeAbbreviation
	}
	return a, nil
}

// AddAbbreviation stores a with a fresh id and keeps the list sorted.
func (p *Project) AddAbbreviation(a Abbreviation) (Abbreviation, error) {
	a, err := a.normalize()
	if err != nil {
		return Abbreviation{}, err
	}
	a.ID = uuid.NewString()
	p.Abbreviations = append(p.Abbreviations, a)
	p.sortAbbreviations()
	return a, nil
}

// UpdateAbbreviation replaces the fields of the entry with the given id.
func (p *Project) UpdateAbbreviation(id string, a Abbreviation) error {
	a, err := a.normalize()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(p.Abbreviations, func(e Abbreviation) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAbbreviationNotFound, id)
	}
	a.ID = id
	p.Abbreviations[i] = a
	p.sortAbbreviations()
	return nil
}

// DeleteAbbreviation removes the entry with the given id.
func (p *Project) DeleteAbbreviation(id string) error {
	n := len(p.Abbreviations)
	p.Abbreviations = slices.DeleteFunc(p.Abbreviations, func(e Abbreviation) bool { return e.ID == id })
	if len(p.Abbreviations) == n {
		return fmt.Errorf("%w: %s", ErrAbbreviationNotFound, id)
	}
	return nil
}

// ImportAbbreviations reads a JSON array of entries, or an object with an
// "abbreviations" array. Invalid entries are skipped. With replace the
// current list is dropped first, otherwise the entries are appended.
func (p *Project) ImportAbbreviations(r io.Reader, replace bool) (int, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, fmt.Errorf("unable to decode abbreviations: %w", err)
	}
	var items []abbreviationInput
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped struct {
			Abbreviations []abbreviationInput `json:"abbreviations"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return 0, fmt.Errorf("unable to decode abbreviations: %w", err)
		}
		items = wrapped.Abbreviations
	}

	imported := make([]Abbreviation, 0, len(items))
	for _, in := range items {
		a, err := in.entry().normalize()
		if err != nil {
			continue
		}
		a.ID = uuid.NewString()
		imported = append(imported, a)
	}
	if len(imported) == 0 {
		return 0, ErrNoAbbreviations
	}
	if replace {
		p.Abbreviations = imported
	} else {
		p.Abbreviations = append(p.Abbreviations, imported...)
	}
	p.sortAbbreviations()
	return len(imported), nil
}

// ExportAbbreviations writes the list as a JSON array without ids.
func (p *Project) ExportAbbreviations(w io.Writer) error {
	type exported struct {
		Abbreviation string `json:"abbreviation"`
		FullForm     string `json:"fullForm"`
		Type         string `json:"type"`
	}
	out := make([]exported, 0, len(p.Abbreviations))
	for _, a := range p.Abbreviations {
		out = append(out, exported{a.Abbreviation, a.FullForm, a.Type})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("unable to encode abbreviations: %w", err)
	}
	return nil
}

// 按越南语排序规则排列
func (p *Project) sortAbbreviations() {
	c := collate.New(language.Vietnamese, collate.IgnoreCase)
	slices.SortStableFunc(p.Abbreviations, func(a, b Abbreviation) int {
		return c.CompareString(a.Abbreviation, b.Abbreviation)
	})
}
