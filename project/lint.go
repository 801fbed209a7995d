package project

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// IssueKind classifies a content problem found by Lint.
type IssueKind int

const (
	// IssueMissingSpace is a '.', ':' or ')' glued to the next word.
	IssueMissingSpace IssueKind = iota
	// IssueUnsupportedLatex is a formula using a command the exporter cannot draw.
	IssueUnsupportedLatex
)

func (k IssueKind) String() string {
	if k == IssueUnsupportedLatex {
		return "latex"
	}
	return "spacing"
}

// MarshalText keeps the JSON payload readable.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Issue is one finding. Line is zero based, Column counts runes.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Line    int       `json:"line"`
	Column  int       `json:"column"`
	Text    string    `json:"text"`
	Pattern string    `json:"pattern,omitempty"`
	Context string    `json:"context"`
}

var (
	missingSpacePattern = regexp.MustCompile(`[.:)][a-zA-Z]`)
	formulaPattern      = regexp.MustCompile(`\$\$([^$]+)\$\$|\$([^$]+)\$`)

	unsupportedLatex = []string{
		`\begin{`, `\end{`, `\underbrace`, `\overbrace`, `\xrightarrow`, `\xleftarrow`,
		`\substack`, `\overset`, `\underset`, `\stackrel`, `\binom`, `\pmatrix`, `\bmatrix`,
	}
)

// Lint scans content for glued punctuation and unsupported LaTeX. Only the
// first unsupported command of each formula is reported.
func Lint(content string) []Issue {
	var issues []Issue
	for i, line := range strings.Split(content, "\n") {
		for _, m := range missingSpacePattern.FindAllStringIndex(line, -1) {
			col := utf8.RuneCountInString(line[:m[0]])
			issues = append(issues, Issue{
				Kind:    IssueMissingSpace,
				Line:    i,
				Column:  col,
				Text:    line[m[0]:m[1]],
				Context: "..." + runeSlice(line, col-10, col+20) + "...",
			})
		}
		for _, m := range formulaPattern.FindAllStringSubmatchIndex(line, -1) {
			body := submatch(line, m, 1)
			if body == "" {
				body = submatch(line, m, 2)
			}
			for _, cmd := range unsupportedLatex {
				if !strings.Contains(body, cmd) {
					continue
				}
				col := utf8.RuneCountInString(line[:m[0]])
				ctx := runeSlice(line, col-5, col+50)
				if col-5 > 0 {
					ctx = "..." + ctx
				}
				if col+50 < utf8.RuneCountInString(line) {
					ctx += "..."
				}
				issues = append(issues, Issue{
					Kind:    IssueUnsupportedLatex,
					Line:    i,
					Column:  col,
					Text:    truncate(body, 40),
					Pattern: cmd,
					Context: ctx,
				})
				break
			}
		}
	}
	return issues
}

// Lint checks the project content.
func (p *Project) Lint() []Issue {
	return Lint(p.Content)
}

// FixSpacing inserts a space after the punctuation of a spacing issue at
// line/column (as reported by Lint).
func (p *Project) FixSpacing(line, column int) error {
	lines := strings.Split(p.Content, "\n")
	if line < 0 || line >= len(lines) {
		return fmt.Errorf("line %d out of range", line)
	}
	runes := []rune(lines[line])
	if column < 0 || column+1 >= len(runes) || !strings.ContainsRune(".:)", runes[column]) {
		return fmt.Errorf("no spacing issue at line %d column %d", line, column)
	}
	lines[line] = string(runes[:column+1]) + " " + string(runes[column+1:])
	p.Content = strings.Join(lines, "\n")
	return nil
}

// FixAllSpacing applies FixSpacing to every spacing issue and returns how
// many were fixed.
func (p *Project) FixAllSpacing() int {
	n := 0
	issues := p.Lint()
	// 从后往前修复，前面的列号不受影响
	for i := len(issues) - 1; i >= 0; i-- {
		if issues[i].Kind != IssueMissingSpace {
			continue
		}
		if p.FixSpacing(issues[i].Line, issues[i].Column) == nil {
			n++
		}
	}
	return n
}

func submatch(s string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return s[m[2*group]:m[2*group+1]]
}

// runeSlice returns the runes of s in [from, to) clamped to s.
func runeSlice(s string, from, to int) string {
	runes := []rune(s)
	from, to = max(from, 0), min(to, len(runes))
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return runeSlice(s, 0, n) + "..."
}

