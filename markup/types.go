package markup

// Style is the formatting applied to a run.
type Style int

const (
	Plain Style = iota
	Bold
	Italic
	Underline
	InlineMath
	DisplayMath
)

func (s Style) String() string {
	switch s {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Underline:
		return "underline"
	case InlineMath:
		return "inline-math"
	case DisplayMath:
		return "display-math"
	default:
		return "plain"
	}
}

// MarshalText keeps debug JSON readable.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Run is a piece of text sharing one style. Math runs hold the TeX source
// without the dollar delimiters.
type Run struct {
	Style Style  `json:"style"`
	Text  string `json:"text"`
}
