package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/folio/config"
	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/project"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(contextWithEnv(context.Background()), append([]string{"folio"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPagesPlainText(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "thesis.txt", "# Mở đầu\nĐoạn văn ngắn.\n# Tổng quan\n- mục")
	out, err := runApp(t, "pages", doc)
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "heading paragraph") || !strings.Contains(lines[1], "bullet") {
		t.Fatalf("unexpected page listing:\n%s", out)
	}
}

func TestPagesJSON(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "thesis.txt", "Một đoạn **đậm**.")
	out, err := runApp(t, "pages", "--json", doc)
	if err != nil {
		t.Fatalf("pages --json: %v", err)
	}
	if !strings.Contains(out, `"kind": "paragraph"`) || !strings.Contains(out, `"pageCapacity"`) {
		t.Fatalf("unexpected json:\n%s", out)
	}
}

func TestRenderWritesPDF(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "thesis.txt", "# Mở đầu\nĐoạn văn.\n[Hình 1.1: Chưa có ảnh]")
	dst := filepath.Join(dir, "out", "preview.pdf")
	layoutJSON := filepath.Join(dir, "layout.json")
	if _, err := runApp(t, "render", "--layout-json", layoutJSON, doc, dst); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("no pdf written: %v", err)
	}
	if _, err := os.Stat(layoutJSON); err != nil {
		t.Fatalf("layout json missing: %v", err)
	}
}

func TestProjectCommands(t *testing.T) {
	dir := t.TempDir()
	p := project.New()
	p.Content = "# Mở đầu\n# Tổng quan\n"
	store := &project.FileStore{Path: filepath.Join(dir, "thesis.json")}
	if err := store.Save(p); err != nil {
		t.Fatal(err)
	}

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatal(err)
	}
	imgPath := writeFile(t, dir, "chart.png", img.String())

	if _, err := runApp(t, "figure", "--caption", "Biểu đồ", "--scale", "50", store.Path, imgPath); err != nil {
		t.Fatalf("figure: %v", err)
	}
	listing, err := runApp(t, "renumber", store.Path)
	if err != nil {
		t.Fatalf("renumber: %v", err)
	}
	if strings.TrimSpace(listing) != "Hình 2.1: Biểu đồ" {
		t.Fatalf("unexpected registry listing:\n%s", listing)
	}
	out, err := runApp(t, "cite", "--author", "Nguyễn A", "--year", "2020", "--title", "Sách", store.Path)
	if err != nil {
		t.Fatalf("cite: %v", err)
	}
	if !strings.Contains(out, "[1] Nguyễn A (2020). Sách.") {
		t.Fatalf("bibliography not printed:\n%s", out)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Figures) != 1 || got.Figures[0].Number != "Hình 2.1" || got.Figures[0].Width != 8 {
		t.Fatalf("figure not registered: %+v", got.Figures)
	}
	if !strings.Contains(got.Content, "[Hình 2.1: Biểu đồ]") || len(got.Citations) != 1 {
		t.Fatalf("project not updated: %+v", got)
	}
	if _, err := os.Stat(got.Figures[0].Path); err != nil {
		t.Fatalf("upload missing: %v", err)
	}
}

func TestDumpConfig(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "folio.yaml")
	if _, err := runApp(t, "dumpconfig", dst); err != nil {
		t.Fatalf("dumpconfig: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || !strings.Contains(string(data), "margin_left: 3.5cm") {
		t.Fatalf("unexpected dump: %v\n%s", err, data)
	}
}

func TestMissingSource(t *testing.T) {
	if _, err := runApp(t, "render", filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Fatal("missing source must fail")
	}
}

func TestRenderFontsFollowMeasurement(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	if got := renderFonts(cfg); len(got) != 0 {
		t.Fatalf("embedded defaults need no injected fonts: %v", got)
	}

	cfg.Measure.Backend = "shaper"
	cfg.Measure.FontFile = "embed:bold"
	want, _ := fonts.Load("bold")
	got := renderFonts(cfg)
	if !bytes.Equal(got[fonts.Regular].Bytes, want) {
		t.Fatal("regular face should be the measurement font")
	}

	cfg.Render.Fonts = map[string]string{fonts.Regular: "embed:italic"}
	want, _ = fonts.Load("italic")
	if got := renderFonts(cfg); !bytes.Equal(got[fonts.Regular].Bytes, want) {
		t.Fatal("configured render font must win")
	}
}

func TestCheckFixesSpacing(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "thesis.txt", "Kết quả:tốt\nTa có $\\binom{n}{k}$.")
	out, err := runApp(t, "check", doc)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "1:8  spacing") || !strings.Contains(out, `2:7  latex    \binom in \binom{n}{k}`) {
		t.Fatalf("unexpected report:\n%s", out)
	}

	out, err = runApp(t, "check", "--fix", doc)
	if err != nil {
		t.Fatalf("check --fix: %v", err)
	}
	if strings.Contains(out, "spacing") || !strings.Contains(out, "latex") {
		t.Fatalf("unexpected report after fix:\n%s", out)
	}
	data, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Kết quả: tốt\n") {
		t.Fatalf("fix not saved: %q", data)
	}
}

func TestAbbreviationCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thesis.json")
	if _, err := runApp(t, "abbr", "--abbr", "VN", "--full", "Việt Nam", path); err != nil {
		t.Fatalf("abbr add: %v", err)
	}
	imp := writeFile(t, dir, "abbr.json", `[{"abbr":"CNTT","diengiai":"Công nghệ thông tin"},{"abbreviation":"π","meaning":"Số pi","type":"symbol"}]`)
	out, err := runApp(t, "abbr", "--import", imp, path)
	if err != nil {
		t.Fatalf("abbr import: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "CNTT\tCông nghệ thông tin\tabbreviation\t") || !strings.HasPrefix(lines[2], "π\tSố pi\tsymbol\t") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	got, err := (&project.FileStore{Path: path}).Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runApp(t, "abbr", "--delete", got.Abbreviations[1].ID, path); err != nil {
		t.Fatalf("abbr delete: %v", err)
	}
	exp := filepath.Join(dir, "export.json")
	if _, err := runApp(t, "abbr", "--export", exp, path); err != nil {
		t.Fatalf("abbr export: %v", err)
	}
	data, err := os.ReadFile(exp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Việt Nam") || !strings.Contains(string(data), "CNTT") {
		t.Fatalf("unexpected export:\n%s", data)
	}
}
