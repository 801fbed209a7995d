package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths used by settings.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // CSS pixels (96 DPI)
)

// Conversion constants. PtToCm and CmToPx match the preview surface the
// calibration knobs were tuned against.
const (
	PtToMm  = 0.352777
	MmToPt  = 1.0 / PtToMm
	PtToCm  = 0.03528
	CmToPx  = 37.7952755906
	PtToPx  = 1.333333
	CmPerIn = 2.54
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToCM converts the length to centimeters. Unit-less values are taken as cm,
// the unit every settings field is stored in.
func (l Length) ToCM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / 10
	case UnitIN:
		return l.Value * CmPerIn
	case UnitPT:
		return l.Value * PtToCm
	case UnitPX:
		return l.Value / CmToPx
	default:
		return l.Value
	}
}

// ToPT converts the length to points. Unit-less values are taken as pt.
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitPT, UnitNone:
		return l.Value
	case UnitPX:
		return l.Value / PtToPx
	default:
		return l.ToCM() / PtToCm
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// ParseLength parses a length string preserving its unit. An empty string
// is a zero length.
func ParseLength(value string) (Length, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{Value: 0, Unit: UnitNone}, nil
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}
